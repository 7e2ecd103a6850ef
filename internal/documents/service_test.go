package documents

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saas-backend/internal/activity"
	"saas-backend/internal/analysis"
	"saas-backend/internal/shared/storage/object"
	"saas-backend/internal/shared/storage/object/local"
	"saas-backend/internal/users"
)

type recordedStart struct {
	reqs []analysis.Request
	err  error
}

func (r *recordedStart) Start(_ context.Context, req analysis.Request) error {
	r.reqs = append(r.reqs, req)
	return r.err
}

type fixture struct {
	svc      *Service
	repo     *MemoryRepo
	store    *local.Store
	activity *activity.MemoryRepo
	analyzer *recordedStart
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	userRepo := users.NewMemoryRepo()
	require.NoError(t, userRepo.Create(context.Background(), users.User{ID: "u1", Name: "Ada", Email: "ada@example.com"}))

	f := fixture{
		repo:     NewMemoryRepo(),
		store:    local.New(t.TempDir()),
		activity: activity.NewMemoryRepo(),
		analyzer: &recordedStart{},
	}
	f.svc = NewService(f.repo, f.store, users.NewService(userRepo), activity.NewService(f.activity, nil), f.analyzer)
	clock := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	f.svc.Now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return f
}

func TestCreateJSONDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Create(ctx, CreateInput{OrganizationID: "org-1", UserID: "u1", Title: "  Plan  ", Description: "Roadmap"})
	require.NoError(t, err)
	assert.Equal(t, "Plan", doc.Title)
	assert.Equal(t, analysis.StatusPending, doc.Status)
	assert.Nil(t, doc.Metadata)

	entries, err := f.activity.Recent(ctx, "org-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, activity.ActionDocumentCreated, entries[0].Action)
	assert.Equal(t, doc.ID, entries[0].ResourceID)
	assert.Equal(t, "u1", entries[0].UserID)
}

func TestCreateValidatesLengths(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{OrganizationID: "org-1", Title: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Create(ctx, CreateInput{OrganizationID: "org-1", Title: strings.Repeat("x", MaxTitleLength+1)})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Create(ctx, CreateInput{OrganizationID: "org-1", Title: "ok", Description: strings.Repeat("d", MaxDescriptionLength+1)})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateWithFileExtractsText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Create(ctx, CreateInput{
		OrganizationID: "org-1",
		UserID:         "u1",
		Title:          "Notes",
		File:           &FileInput{Name: "notes.txt", Reader: strings.NewReader("meeting notes body")},
	})
	require.NoError(t, err)
	require.NotNil(t, doc.Metadata)
	assert.Equal(t, "meeting notes body", doc.Content)
	assert.Equal(t, "notes.txt", doc.Metadata.OriginalFilename)
	assert.EqualValues(t, len("meeting notes body"), doc.Metadata.FileSize)
	assert.Zero(t, doc.Metadata.PageCount)
	assert.False(t, doc.Metadata.UploadedAt.IsZero())
	assert.True(t, object.OwnedBy(doc.Metadata.StorageKey, "org-1"))

	rc, err := f.store.Open(ctx, doc.Metadata.StorageKey)
	require.NoError(t, err)
	rc.Close()
}

func TestCreateWithUnsupportedFileKeepsDocument(t *testing.T) {
	f := newFixture(t)
	doc, err := f.svc.Create(context.Background(), CreateInput{
		OrganizationID: "org-1",
		Title:          "Image",
		File:           &FileInput{Name: "pic.png", Reader: bytes.NewReader([]byte("\x89PNG\r\n\x1a\n0000"))},
	})
	require.NoError(t, err)
	assert.Empty(t, doc.Content)
	assert.Equal(t, "image/png", doc.Metadata.ContentType)
}

func TestCreateRejectsOversizedFile(t *testing.T) {
	f := newFixture(t)
	big := bytes.Repeat([]byte("a"), MaxUploadSize+1)
	_, err := f.svc.Create(context.Background(), CreateInput{
		OrganizationID: "org-1",
		Title:          "Big",
		File:           &FileInput{Name: "big.txt", Reader: bytes.NewReader(big)},
	})
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestCreateFromPathnameRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key, _, _, err := f.store.Save(ctx, object.Namespace("org-2"), "secret.txt", strings.NewReader("other tenant"))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, CreateInput{OrganizationID: "org-1", Title: "Steal", Pathname: key})
	assert.ErrorIs(t, err, ErrInvalidInput)

	doc, err := f.svc.Create(ctx, CreateInput{OrganizationID: "org-2", Title: "Mine", Pathname: key})
	require.NoError(t, err)
	assert.Equal(t, "other tenant", doc.Content)
	assert.Equal(t, "secret.txt", doc.Metadata.OriginalFilename)
}

func TestListIsScopedAndNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, title := range []string{"first", "second", "third"} {
		_, err := f.svc.Create(ctx, CreateInput{OrganizationID: "org-1", UserID: "u1", Title: title})
		require.NoError(t, err)
	}
	_, err := f.svc.Create(ctx, CreateInput{OrganizationID: "org-2", Title: "foreign"})
	require.NoError(t, err)

	docs, err := f.svc.List(ctx, "org-1", 2, 0)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "third", docs[0].Title)
	assert.Equal(t, "second", docs[1].Title)
	require.NotNil(t, docs[0].CreatedBy)
	assert.Equal(t, "Ada", docs[0].CreatedBy.Name)

	docs, err = f.svc.List(ctx, "org-1", 2, 2)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "first", docs[0].Title)
}

func TestGetAndDeleteHideOtherOrganizations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc, err := f.svc.Create(ctx, CreateInput{OrganizationID: "org-1", UserID: "u1", Title: "Private"})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, "org-2", doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, "org-2", "u9", doc.ID), ErrNotFound)

	require.NoError(t, f.svc.Delete(ctx, "org-1", "u1", doc.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, "org-1", "u1", doc.ID), ErrNotFound)

	entries, err := f.activity.Recent(ctx, "org-1", 10)
	require.NoError(t, err)
	assert.Equal(t, activity.ActionDocumentDeleted, entries[0].Action)
}

func TestDeleteRemovesStoredFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc, err := f.svc.Create(ctx, CreateInput{
		OrganizationID: "org-1",
		Title:          "Notes",
		File:           &FileInput{Name: "notes.txt", Reader: strings.NewReader("x")},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, "org-1", "u1", doc.ID))
	_, err = f.store.Open(ctx, doc.Metadata.StorageKey)
	assert.ErrorIs(t, err, object.ErrNotFound)
}

func TestDeleteKeepsPathnameAttachedFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key, _, _, err := f.store.Save(ctx, object.Namespace("org-1"), "shared.txt", strings.NewReader("keep me"))
	require.NoError(t, err)

	doc, err := f.svc.Create(ctx, CreateInput{OrganizationID: "org-1", Title: "Linked", Pathname: key})
	require.NoError(t, err)
	require.NotNil(t, doc.Metadata)
	assert.True(t, doc.Metadata.Attached)

	require.NoError(t, f.svc.Delete(ctx, "org-1", "u1", doc.ID))
	body, err := f.store.Open(ctx, key)
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}

func TestUpdateStatusAllowsAnyTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc, err := f.svc.Create(ctx, CreateInput{OrganizationID: "org-1", Title: "T"})
	require.NoError(t, err)

	for _, status := range []analysis.Status{analysis.StatusCompleted, analysis.StatusPending, analysis.StatusFailed, analysis.StatusProcessing} {
		updated, err := f.svc.UpdateStatus(ctx, "org-1", doc.ID, status)
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
	}
	_, err = f.svc.UpdateStatus(ctx, "org-1", doc.ID, "archived")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.UpdateStatus(ctx, "org-2", doc.ID, analysis.StatusPending)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStartAnalysisDelegates(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.StartAnalysis(context.Background(), "org-1", "u1", "d1", analysis.TypeSummary))
	require.Len(t, f.analyzer.reqs, 1)
	assert.Equal(t, analysis.Request{
		ResourceType:   analysis.ResourceDocument,
		ResourceID:     "d1",
		OrganizationID: "org-1",
		UserID:         "u1",
		Type:           analysis.TypeSummary,
	}, f.analyzer.reqs[0])

	f.analyzer.err = analysis.ErrFeatureDisabled
	err := f.svc.StartAnalysis(context.Background(), "org-1", "u1", "d1", analysis.TypeGeneral)
	assert.True(t, errors.Is(err, analysis.ErrFeatureDisabled))
}

func TestAnalysisTargetMapsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	target := AnalysisTarget{Repo: f.repo}

	_, err := target.AnalysisSubject(ctx, "org-1", "missing")
	assert.ErrorIs(t, err, analysis.ErrNotFound)

	doc, err := f.svc.Create(ctx, CreateInput{OrganizationID: "org-1", Title: "T", Description: "D"})
	require.NoError(t, err)
	subject, err := target.AnalysisSubject(ctx, "org-1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "D", subject.Text())

	require.NoError(t, target.SaveAnalysis(ctx, "org-1", doc.ID, analysis.Output{Summary: "S"}))
	stored, err := f.repo.GetByID(ctx, "org-1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, analysis.StatusCompleted, stored.Status)
	assert.Equal(t, "S", stored.AIOutput.Summary)
	assert.ErrorIs(t, target.SetStatus(ctx, "org-2", doc.ID, analysis.StatusFailed), analysis.ErrNotFound)
}

func TestCountByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(ctx, CreateInput{OrganizationID: "org-1", Title: "T"})
		require.NoError(t, err)
	}
	docs, err := f.svc.List(ctx, "org-1", 1, 0)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, "org-1", docs[0].ID, analysis.StatusCompleted)
	require.NoError(t, err)

	counts, err := f.svc.CountByStatus(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, map[analysis.Status]int{analysis.StatusPending: 2, analysis.StatusCompleted: 1}, counts)
}
