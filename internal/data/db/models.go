package db

import "database/sql"

type Project struct {
	ID         string
	Name       string
	OwnerID    string
	RepoURL    string
	DefaultRef string
	Config     sql.NullString
	ScanStatus string
	CreatedAt  int64
	UpdatedAt  int64
}

type Snapshot struct {
	ID        string
	ProjectID string
	Ref       string
	Accepted  bool
	CreatedAt int64
}

type SnapshotAnnotation struct {
	SnapshotID string
	Position   int64
	ID         string
	File       string
	Line       int64
	Tag        string
	Text       string
	Context    string
}

type ChangeSet struct {
	ID            string
	ProjectID     string
	OldSnapshotID sql.NullString
	NewSnapshotID string
	Status        string
	Results       string
	CreatedAt     int64
	ResolvedAt    sql.NullInt64
}

type Annotation struct {
	ID         string
	ProjectID  string
	SnapshotID string
	Tag        string
	Text       string
	File       string
	Line       int64
	Context    string
	UpdatedAt  int64
}

type Task struct {
	ID           string
	ProjectID    string
	OwnerID      string
	Title        string
	Visibility   string
	Progress     string
	AnnotationID sql.NullString
	CreatedAt    int64
	UpdatedAt    int64
}

type Tag struct {
	ID        string
	OwnerID   string
	Name      string
	Active    bool
	CreatedAt int64
}

type TaskHistory struct {
	ID        string
	TaskID    string
	Action    string
	Actor     string
	Detail    string
	CreatedAt int64
}

type KvStore struct {
	Key       string
	Value     []byte
	ExpiresAt sql.NullInt64
	CreatedAt int64
	UpdatedAt int64
}
