package mirror

// NotificationType is the raw change type reported by an Observer.
type NotificationType string

const (
	Created  NotificationType = "created"
	Modified NotificationType = "modified"
	Deleted  NotificationType = "deleted"
)

// Notification is a raw filesystem change as delivered by an Observer.
type Notification struct {
	Type  NotificationType
	Path  string
	IsDir bool
}

// IntentKind is the closed set of remote actions the executor knows.
type IntentKind int

const (
	FileUpserted IntentKind = iota + 1
	FileRemoved
	DirectoryCreated
	DirectoryRemoved
)

func (k IntentKind) String() string {
	switch k {
	case FileUpserted:
		return "file-upserted"
	case FileRemoved:
		return "file-removed"
	case DirectoryCreated:
		return "directory-created"
	case DirectoryRemoved:
		return "directory-removed"
	default:
		return "unknown"
	}
}

// isDirKind reports whether the kind acts on a directory marker.
func (k IntentKind) isDirKind() bool {
	return k == DirectoryCreated || k == DirectoryRemoved
}

// Intent is one unit of work for the Executor. Intents are never persisted.
type Intent struct {
	Kind      IntentKind
	LocalPath string
	// IsDir duplicates what Kind implies; the executor rejects intents where
	// the two disagree.
	IsDir bool
}
