package models

import (
	"fmt"
	"time"
)

// FileKind is the media kind of an archived file.
type FileKind string

const (
	KindAudio    FileKind = "audio"
	KindVideo    FileKind = "video"
	KindDocument FileKind = "document"
	KindPhoto    FileKind = "photo"
)

// FileKinds lists every kind in display order.
var FileKinds = []FileKind{KindAudio, KindVideo, KindDocument, KindPhoto}

// Valid reports whether k is one of the known kinds.
func (k FileKind) Valid() bool {
	switch k {
	case KindAudio, KindVideo, KindDocument, KindPhoto:
		return true
	}
	return false
}

// FileRef points at a message in the private archive chat.
type FileRef struct {
	ArchiveMessageID int      `json:"message_id" bson:"message_id"`
	Kind             FileKind `json:"type" bson:"type"`
}

// Batch is a titled, ordered collection of archived files shared through one link.
type Batch struct {
	ID        string    `json:"id" bson:"_id"`
	Title     string    `json:"title" bson:"title"`
	Files     []FileRef `json:"files" bson:"files"`
	CreatedBy int64     `json:"created_by" bson:"created_by"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	Views     int64     `json:"views" bson:"views"`
}

// Validate checks the invariants a batch must hold before it is written.
func (b *Batch) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("%w: batch id is empty", ErrMalformed)
	}
	if b.Title == "" {
		return fmt.Errorf("%w: batch title is empty", ErrMalformed)
	}
	if len(b.Files) == 0 {
		return fmt.Errorf("%w: batch has no files", ErrMalformed)
	}
	for i, f := range b.Files {
		if !f.Kind.Valid() {
			return fmt.Errorf("%w: file %d has unknown kind %q", ErrMalformed, i, f.Kind)
		}
	}
	return nil
}

// KindCounts tallies the files of each kind.
type KindCounts map[FileKind]int

// NewKindCounts returns counts with every kind present at zero.
func NewKindCounts() KindCounts {
	c := make(KindCounts, len(FileKinds))
	for _, k := range FileKinds {
		c[k] = 0
	}
	return c
}

// CountKinds tallies files by kind.
func CountKinds(files []FileRef) KindCounts {
	c := NewKindCounts()
	for _, f := range files {
		c[f.Kind]++
	}
	return c
}
