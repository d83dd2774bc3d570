package encryption

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s3mirror/internal/config"
)

func TestNewEncryptorFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		typ      string
		wantNil  bool
		wantType any
		wantErr  bool
	}{
		{name: "default is none", typ: "", wantNil: true},
		{name: "none", typ: "none", wantNil: true},
		{name: "age", typ: "age", wantType: &AgeEncryptor{}},
		{name: "test", typ: "test", wantType: &TestEncryptor{}},
		{name: "unknown", typ: "rot13", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewEncryptorFromConfig(config.EncryptionConfig{Type: tt.typ})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, enc)
				return
			}
			assert.IsType(t, tt.wantType, enc)
		})
	}
}

func TestTestEncryptor_RoundTrip(t *testing.T) {
	e := NewTestEncryptor()

	var enc bytes.Buffer
	require.NoError(t, e.Encrypt(strings.NewReader("payload"), &enc))
	assert.NotEqual(t, "payload", enc.String())

	dec, err := e.Unlock("")
	require.NoError(t, err)
	var out bytes.Buffer
	require.NoError(t, dec.Decrypt(&enc, &out))
	assert.Equal(t, "payload", out.String())

	assert.Error(t, dec.Decrypt(strings.NewReader("plain"), &out), "missing header")
}
