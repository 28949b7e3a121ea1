package portfolio

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// ProjectService runs the project admin actions
type ProjectService struct {
	base
	store ProjectStore
}

// NewProjectService creates a ProjectService
func NewProjectService(store ProjectStore, cfg Config) *ProjectService {
	return &ProjectService{base: newBase(cfg), store: store}
}

// Create uploads the input images and inserts a project owned by actor
func (s *ProjectService) Create(ctx context.Context, actor string, in ProjectInput) Result {
	if !s.authorized(actor) {
		s.logger.Warn("unauthorized attempt to create project", zap.String("user_id", actor))
		return failure(UnauthorizedMessage)
	}

	imageURLs, uploadErrors := s.uploadImages(ctx, actor, in.Images)

	p := &Project{
		Title:        in.Title,
		Description:  in.Description,
		Technologies: ParseTechnologies(in.Technologies),
		GithubURL:    nullable(in.GithubURL),
		LiveDemoURL:  nullable(in.LiveDemoURL),
		ImageURLs:    imageURLs,
		IsPublished:  in.IsPublished,
		UserID:       actor,
	}
	if err := s.store.InsertProject(ctx, p); err != nil {
		s.logger.Error("failed to create project", zap.Error(err))
		return failure("Failed to create project: " + err.Error())
	}

	s.logger.Info("project created", zap.String("project_id", p.ID))
	if len(uploadErrors) > 0 {
		s.logger.Warn("some image uploads failed", zap.Strings("errors", uploadErrors))
	}

	s.revalidate(ctx, "/admin/projects", "/")
	return success("Project created successfully!")
}

// Update merges newly uploaded images into the stored list, drops the
// images listed in RemoveImageURLs and rewrites the row.
func (s *ProjectService) Update(ctx context.Context, actor, id string, in ProjectInput) Result {
	if !s.authorized(actor) {
		s.logger.Warn("unauthorized attempt to update project", zap.String("user_id", actor))
		return failure(UnauthorizedMessage)
	}

	current, err := s.store.ProjectImageURLs(ctx, id)
	if err != nil {
		s.logger.Error("failed to fetch project for update", zap.String("project_id", id), zap.Error(err))
		return failure("Error fetching project: " + notFoundMessage(err, "Project not found"))
	}

	var kept, removed []string
	for _, u := range current {
		if slices.Contains(in.RemoveImageURLs, u) {
			removed = append(removed, u)
		} else {
			kept = append(kept, u)
		}
	}

	uploaded, uploadErrors := s.uploadImages(ctx, actor, in.Images)
	imageURLs := append(append([]string{}, kept...), uploaded...)

	p := &Project{
		ID:           id,
		Title:        in.Title,
		Description:  in.Description,
		Technologies: ParseTechnologies(in.Technologies),
		GithubURL:    nullable(in.GithubURL),
		LiveDemoURL:  nullable(in.LiveDemoURL),
		ImageURLs:    imageURLs,
		IsPublished:  in.IsPublished,
	}
	if err := s.store.UpdateProject(ctx, p); err != nil {
		s.logger.Error("failed to update project", zap.String("project_id", id), zap.Error(err))
		return failure("Failed to update project: " + err.Error())
	}

	s.logger.Info("project updated", zap.String("project_id", id))
	if len(uploadErrors) > 0 {
		s.logger.Warn("some new image uploads failed", zap.Strings("errors", uploadErrors))
	}
	s.objects.remove(ctx, removed...)

	s.revalidate(ctx, "/admin/projects/"+id+"/edit", "/admin/projects", "/")
	return success("Project updated successfully!")
}

// Delete removes the project row and then its images
func (s *ProjectService) Delete(ctx context.Context, actor, id string) Result {
	if !s.authorized(actor) {
		s.logger.Warn("unauthorized attempt to delete project", zap.String("user_id", actor))
		return failure(UnauthorizedMessage)
	}

	imageURLs, err := s.store.ProjectImageURLs(ctx, id)
	if err != nil {
		s.logger.Error("failed to fetch project for deletion", zap.String("project_id", id), zap.Error(err))
		return failure("Error fetching project: " + notFoundMessage(err, "Project not found"))
	}

	if err := s.store.DeleteProject(ctx, id); err != nil {
		s.logger.Error("failed to delete project", zap.String("project_id", id), zap.Error(err))
		return failure("Failed to delete project: " + err.Error())
	}

	s.objects.remove(ctx, imageURLs...)
	s.logger.Info("project deleted", zap.String("project_id", id))

	s.revalidate(ctx, "/admin/projects", "/")
	return success("Project deleted successfully!")
}

// Get returns one project
func (s *ProjectService) Get(ctx context.Context, id string) (*Project, error) {
	return s.store.GetProject(ctx, id)
}

// ListPublished returns the projects shown on the public site, newest first
func (s *ProjectService) ListPublished(ctx context.Context) ([]Project, error) {
	return s.store.ListProjects(ctx, true)
}

// ListAll returns every project, newest first
func (s *ProjectService) ListAll(ctx context.Context) ([]Project, error) {
	return s.store.ListProjects(ctx, false)
}

// uploadImages skips empty files and collects one message per failure
func (s *ProjectService) uploadImages(ctx context.Context, actor string, images []Upload) (urls, errs []string) {
	urls = []string{}
	for _, img := range images {
		if img.Size == 0 {
			continue
		}
		u, err := s.objects.upload(ctx, actor, img)
		if err != nil {
			s.logger.Error("failed to upload image", zap.String("file", img.Name), zap.Error(err))
			errs = append(errs, fmt.Sprintf("Failed to upload %s: %v", img.Name, err))
			continue
		}
		urls = append(urls, u)
	}
	return urls, errs
}

func notFoundMessage(err error, message string) string {
	if errors.Is(err, ErrNotFound) {
		return message
	}
	return err.Error()
}
