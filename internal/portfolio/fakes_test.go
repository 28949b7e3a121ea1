package portfolio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/chikamso/portfolio/internal/storage"
	"github.com/google/uuid"
)

const (
	adminID    = "11111111-1111-1111-1111-111111111111"
	bucketName = "portfolio-images"
	publicBase = "https://cdn.test/storage/v1/object/public"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeBucket struct {
	mu         sync.Mutex
	objects    map[string]string
	options    map[string]storage.UploadOptions
	failUpload error
	failRemove error
	removed    []string
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string]string{}, options: map[string]storage.UploadOptions{}}
}

func (b *fakeBucket) Name() string { return bucketName }

func (b *fakeBucket) Upload(_ context.Context, name string, r io.Reader, _ int64, opts storage.UploadOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failUpload != nil {
		return b.failUpload
	}
	if _, ok := b.objects[name]; ok {
		return storage.ErrObjectExists
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.objects[name] = string(data)
	b.options[name] = opts
	return nil
}

func (b *fakeBucket) PublicURL(name string) string {
	return publicBase + "/" + bucketName + "/" + name
}

func (b *fakeBucket) Remove(_ context.Context, names ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removed = append(b.removed, names...)
	if b.failRemove != nil {
		return b.failRemove
	}
	for _, n := range names {
		delete(b.objects, n)
	}
	return nil
}

type recordingRevalidator struct {
	paths []string
}

func (r *recordingRevalidator) RevalidatePath(_ context.Context, path string) error {
	r.paths = append(r.paths, path)
	return nil
}

type fakeStore struct {
	projects map[string]*Project
	skills   map[string]*Skill

	insertErr error
	updateErr error
	deleteErr error
	fetchErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{projects: map[string]*Project{}, skills: map[string]*Skill{}}
}

func (f *fakeStore) InsertProject(_ context.Context, p *Project) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	p.ID = uuid.NewString()
	p.CreatedAt = fixedNow
	cp := *p
	f.projects[p.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateProject(_ context.Context, p *Project) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	cur, ok := f.projects[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.UserID = cur.UserID
	p.CreatedAt = cur.CreatedAt
	cp := *p
	f.projects[p.ID] = &cp
	return nil
}

func (f *fakeStore) DeleteProject(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.projects[id]; !ok {
		return ErrNotFound
	}
	delete(f.projects, id)
	return nil
}

func (f *fakeStore) ProjectImageURLs(_ context.Context, id string) ([]string, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	p, ok := f.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]string{}, p.ImageURLs...), nil
}

func (f *fakeStore) GetProject(_ context.Context, id string) (*Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) ListProjects(_ context.Context, publishedOnly bool) ([]Project, error) {
	var out []Project
	for _, p := range f.projects {
		if publishedOnly && !p.IsPublished {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) InsertSkill(_ context.Context, s *Skill) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	s.ID = uuid.NewString()
	s.CreatedAt = fixedNow
	cp := *s
	f.skills[s.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateSkill(_ context.Context, s *Skill) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	cur, ok := f.skills[s.ID]
	if !ok {
		return ErrNotFound
	}
	s.UserID = cur.UserID
	cp := *s
	f.skills[s.ID] = &cp
	return nil
}

func (f *fakeStore) DeleteSkill(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.skills, id)
	return nil
}

func (f *fakeStore) SkillIconURL(_ context.Context, id string) (*string, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	s, ok := f.skills[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.IconURL, nil
}

func (f *fakeStore) GetSkill(_ context.Context, id string) (*Skill, error) {
	s, ok := f.skills[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) ListSkills(context.Context) ([]Skill, error) {
	var out []Skill
	for _, s := range f.skills {
		out = append(out, *s)
	}
	return out, nil
}

func upload(name, content string) Upload {
	return Upload{
		Name:        name,
		Size:        int64(len(content)),
		ContentType: "image/png",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func brokenUpload(name string) Upload {
	return Upload{
		Name: name,
		Size: 10,
		Open: func() (io.ReadCloser, error) {
			return nil, errors.New("multipart part vanished")
		},
	}
}

func objectURL(name string) string {
	return fmt.Sprintf("%s/%s/%s", publicBase, bucketName, name)
}
