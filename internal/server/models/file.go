// Package models defines server-side data models persisted in the database.
package models

import "time"

// File describes server-side metadata for a stored blob. The content itself
// lives in the blob store under StorageKey.
type File struct {
	ID           string
	FolderID     string
	OwnerID      string
	OriginalName string
	ContentType  string
	Size         int64
	// StorageKey is the opaque blob store path of the content.
	StorageKey string
	CreatedAt  time.Time
}

// FileView is a file as seen by one user, annotated with that user's access.
type FileView struct {
	File   *File
	Access Access
}

// Folder groups files and determines who may upload into it.
type Folder struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt time.Time
}
