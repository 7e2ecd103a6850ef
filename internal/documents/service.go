package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"saas-backend/internal/activity"
	"saas-backend/internal/analysis"
	"saas-backend/internal/extract"
	"saas-backend/internal/shared/storage/object"
	"saas-backend/internal/shared/telemetry"
	"saas-backend/internal/users"
)

const (
	MaxUploadSize        = 10 << 20
	MaxTitleLength       = 255
	MaxDescriptionLength = 5000
	MaxContentLength     = 100_000
	DefaultListLimit     = 20
	MaxListLimit         = 100
)

// Analyzer starts asynchronous analyses.
type Analyzer interface {
	Start(ctx context.Context, req analysis.Request) error
}

// UserDirectory resolves creator summaries.
type UserDirectory interface {
	Summaries(ctx context.Context, userIDs []string) (map[string]users.Summary, error)
}

// ActivityRecorder appends audit rows.
type ActivityRecorder interface {
	Record(ctx context.Context, entry activity.Entry)
}

// Service contains business logic for documents.
type Service struct {
	Repo     Repo
	Store    object.ObjectStore
	Users    UserDirectory
	Activity ActivityRecorder
	Analyzer Analyzer
	Now      func() time.Time
}

func NewService(repo Repo, store object.ObjectStore, dir UserDirectory, recorder ActivityRecorder, analyzer Analyzer) *Service {
	return &Service{Repo: repo, Store: store, Users: dir, Activity: recorder, Analyzer: analyzer, Now: time.Now}
}

// CreateInput creates a document. At most one of File and Pathname is used.
type CreateInput struct {
	OrganizationID string
	UserID         string
	Title          string
	Description    string
	// Pathname references an object already uploaded into the organization's namespace.
	Pathname string
	File     *FileInput
}

type FileInput struct {
	Name   string
	Reader io.Reader
}

// Create stores the optional file, extracts its text and records the document as pending.
func (s *Service) Create(ctx context.Context, in CreateInput) (Document, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || utf8.RuneCountInString(title) > MaxTitleLength {
		return Document{}, fmt.Errorf("%w: title must be 1-%d characters", ErrInvalidInput, MaxTitleLength)
	}
	if utf8.RuneCountInString(in.Description) > MaxDescriptionLength {
		return Document{}, fmt.Errorf("%w: description must be at most %d characters", ErrInvalidInput, MaxDescriptionLength)
	}

	doc := Document{
		ID:             uuid.NewString(),
		OrganizationID: in.OrganizationID,
		CreatedByID:    in.UserID,
		Title:          title,
		Description:    strings.TrimSpace(in.Description),
		Status:         analysis.StatusPending,
		CreatedAt:      s.now().UTC(),
	}
	doc.UpdatedAt = doc.CreatedAt

	switch {
	case in.File != nil:
		meta, content, err := s.storeFile(ctx, in.OrganizationID, in.File)
		if err != nil {
			return Document{}, err
		}
		doc.Metadata, doc.Content = meta, content
	case strings.TrimSpace(in.Pathname) != "":
		meta, content, err := s.attachStored(ctx, in.OrganizationID, in.Pathname)
		if err != nil {
			return Document{}, err
		}
		doc.Metadata, doc.Content = meta, content
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		if doc.Metadata != nil && in.File != nil {
			_ = s.Store.Delete(context.WithoutCancel(ctx), doc.Metadata.StorageKey)
		}
		return Document{}, err
	}
	s.record(ctx, doc, in.UserID, activity.ActionDocumentCreated, map[string]any{"title": doc.Title})
	return doc, nil
}

func (s *Service) storeFile(ctx context.Context, organizationID string, file *FileInput) (*Metadata, string, error) {
	if s.Store == nil {
		return nil, "", errors.New("object store not configured")
	}
	if strings.TrimSpace(file.Name) == "" {
		return nil, "", fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	data, err := io.ReadAll(io.LimitReader(file.Reader, MaxUploadSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, "", ErrTooLarge
	}

	key, size, mimeType, err := s.Store.Save(ctx, object.Namespace(organizationID), file.Name, bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("store upload: %w", err)
	}
	meta := &Metadata{
		OriginalFilename: file.Name,
		FileSize:         size,
		PageCount:        extract.PageCount(data, mimeType, file.Name),
		UploadedAt:       s.now().UTC(),
		StorageKey:       key,
		ContentType:      mimeType,
	}
	return meta, s.extract(ctx, data, mimeType, file.Name), nil
}

func (s *Service) attachStored(ctx context.Context, organizationID, pathname string) (*Metadata, string, error) {
	if s.Store == nil {
		return nil, "", errors.New("object store not configured")
	}
	key, err := object.CleanKey(pathname)
	if err != nil || !object.OwnedBy(key, organizationID) {
		return nil, "", fmt.Errorf("%w: pathname not found", ErrInvalidInput)
	}
	body, err := s.Store.Open(ctx, key)
	if errors.Is(err, object.ErrNotFound) {
		return nil, "", fmt.Errorf("%w: pathname not found", ErrInvalidInput)
	}
	if err != nil {
		return nil, "", err
	}
	defer body.Close()
	data, err := io.ReadAll(io.LimitReader(body, MaxUploadSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read stored object: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, "", ErrTooLarge
	}

	fileName := displayName(key)
	mimeType, _, _ := object.Sniff(bytes.NewReader(data))
	meta := &Metadata{
		OriginalFilename: fileName,
		FileSize:         int64(len(data)),
		PageCount:        extract.PageCount(data, mimeType, fileName),
		UploadedAt:       s.now().UTC(),
		StorageKey:       key,
		ContentType:      mimeType,
		Attached:         true,
	}
	return meta, s.extract(ctx, data, mimeType, fileName), nil
}

func (s *Service) extract(ctx context.Context, data []byte, mimeType, fileName string) string {
	text, err := extract.ExtractTextFromBytes(ctx, data, mimeType, fileName)
	if err != nil {
		telemetry.Warn("documents.extract_failed", map[string]any{
			"request_id": telemetry.RequestIDFrom(ctx),
			"file_name":  fileName,
			"mime_type":  mimeType,
			"error":      err,
		})
		return ""
	}
	return truncateRunes(text, MaxContentLength)
}

// Get returns a document with its creator attached.
func (s *Service) Get(ctx context.Context, organizationID, id string) (Document, error) {
	doc, err := s.Repo.GetByID(ctx, organizationID, id)
	if err != nil {
		return Document{}, err
	}
	docs := []Document{doc}
	if err := s.attachCreators(ctx, docs); err != nil {
		return Document{}, err
	}
	return docs[0], nil
}

// List returns documents newest first with their creators attached.
func (s *Service) List(ctx context.Context, organizationID string, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	docs, err := s.Repo.List(ctx, organizationID, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := s.attachCreators(ctx, docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Delete removes the document and the file it stored. Files attached by
// pathname stay in the store.
func (s *Service) Delete(ctx context.Context, organizationID, userID, id string) error {
	doc, err := s.Repo.GetByID(ctx, organizationID, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, organizationID, id); err != nil {
		return err
	}
	if doc.Metadata != nil && doc.Metadata.StorageKey != "" && !doc.Metadata.Attached && s.Store != nil {
		if err := s.Store.Delete(ctx, doc.Metadata.StorageKey); err != nil {
			telemetry.Warn("documents.file_delete_failed", map[string]any{
				"request_id":  telemetry.RequestIDFrom(ctx),
				"document_id": id,
				"error":       err,
			})
		}
	}
	s.record(ctx, doc, userID, activity.ActionDocumentDeleted, map[string]any{"title": doc.Title})
	return nil
}

// UpdateStatus assigns status directly; any of the four states is accepted from any other.
func (s *Service) UpdateStatus(ctx context.Context, organizationID, id string, status analysis.Status) (Document, error) {
	if !status.Valid() {
		return Document{}, fmt.Errorf("%w: unknown status", ErrInvalidInput)
	}
	if err := s.Repo.UpdateStatus(ctx, organizationID, id, status); err != nil {
		return Document{}, err
	}
	return s.Get(ctx, organizationID, id)
}

// StartAnalysis marks the document processing and runs the analysis in the background.
func (s *Service) StartAnalysis(ctx context.Context, organizationID, userID, id string, analysisType analysis.Type) error {
	if s.Analyzer == nil {
		return errors.New("analyzer not configured")
	}
	return s.Analyzer.Start(ctx, analysis.Request{
		ResourceType:   analysis.ResourceDocument,
		ResourceID:     id,
		OrganizationID: organizationID,
		UserID:         userID,
		Type:           analysisType,
	})
}

// CountByStatus returns document counts for the dashboard.
func (s *Service) CountByStatus(ctx context.Context, organizationID string) (map[analysis.Status]int, error) {
	return s.Repo.CountByStatus(ctx, organizationID)
}

func (s *Service) attachCreators(ctx context.Context, docs []Document) error {
	if s.Users == nil || len(docs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.CreatedByID)
	}
	summaries, err := s.Users.Summaries(ctx, ids)
	if err != nil {
		return err
	}
	for i := range docs {
		if u, ok := summaries[docs[i].CreatedByID]; ok {
			docs[i].CreatedBy = &u
		}
	}
	return nil
}

func (s *Service) record(ctx context.Context, doc Document, userID, action string, metadata map[string]any) {
	if s.Activity == nil {
		return
	}
	s.Activity.Record(ctx, activity.Entry{
		OrganizationID: doc.OrganizationID,
		UserID:         userID,
		Action:         action,
		ResourceType:   activity.ResourceDocument,
		ResourceID:     doc.ID,
		Metadata:       metadata,
	})
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// displayName strips the random prefix NewKey adds to stored file names.
func displayName(key string) string {
	name := key
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "_"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
