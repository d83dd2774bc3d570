package observer

import (
	"fmt"

	"s3mirror/internal/config"
	"s3mirror/internal/mirror"
)

// NewObserverFromConfig creates an Observer for root based on the configured backend.
func NewObserverFromConfig(cfg config.ObserverConfig, root string, logger mirror.Logger) (mirror.Observer, error) {
	switch cfg.Type {
	case "fsnotify", "":
		return NewFSNotifyObserver(root, logger), nil
	case "notify":
		return NewNotifyObserver(root, logger), nil
	default:
		return nil, fmt.Errorf("unknown observer type: %s", cfg.Type)
	}
}
