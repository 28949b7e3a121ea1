package portfolio

import (
	"context"

	"go.uber.org/zap"
)

// SkillService runs the skill admin actions
type SkillService struct {
	base
	store SkillStore
}

// NewSkillService creates a SkillService
func NewSkillService(store SkillStore, cfg Config) *SkillService {
	return &SkillService{base: newBase(cfg), store: store}
}

// Create uploads the optional icon and inserts a skill owned by actor
func (s *SkillService) Create(ctx context.Context, actor string, in SkillInput) Result {
	if !s.authorized(actor) {
		s.logger.Warn("unauthorized attempt to create skill", zap.String("user_id", actor))
		return failure(UnauthorizedMessage)
	}

	var iconURL *string
	var uploadErr string
	if in.Icon != nil && in.Icon.Size > 0 {
		u, err := s.objects.upload(ctx, SkillIconPrefix, *in.Icon)
		if err != nil {
			s.logger.Error("failed to upload skill icon", zap.String("file", in.Icon.Name), zap.Error(err))
			uploadErr = "Failed to upload icon: " + err.Error()
		} else {
			iconURL = &u
		}
	}

	sk := &Skill{
		Name:     in.Name,
		IconURL:  iconURL,
		Category: nullable(in.Category),
		UserID:   actor,
	}
	if err := s.store.InsertSkill(ctx, sk); err != nil {
		s.logger.Error("failed to create skill", zap.Error(err))
		return failure("Failed to create skill: " + err.Error())
	}

	s.logger.Info("skill created", zap.String("skill_id", sk.ID))
	s.revalidate(ctx, "/admin/skills", "/")
	return success(withWarning("Skill created successfully!", uploadErr))
}

// Update replaces the icon when a new one is supplied. The old icon is
// removed before the upload and its URL is kept if the upload fails.
func (s *SkillService) Update(ctx context.Context, actor, id string, in SkillInput) Result {
	if !s.authorized(actor) {
		s.logger.Warn("unauthorized attempt to update skill", zap.String("user_id", actor))
		return failure(UnauthorizedMessage)
	}

	current, err := s.store.SkillIconURL(ctx, id)
	if err != nil {
		s.logger.Error("failed to fetch skill for update", zap.String("skill_id", id), zap.Error(err))
		return failure("Error fetching current skill: " + notFoundMessage(err, "Skill not found"))
	}

	iconURL := current
	var uploadErr string
	if in.Icon != nil && in.Icon.Size > 0 {
		if current != nil {
			s.objects.remove(ctx, *current)
		}
		u, err := s.objects.upload(ctx, SkillIconPrefix, *in.Icon)
		if err != nil {
			s.logger.Error("failed to upload new skill icon", zap.String("file", in.Icon.Name), zap.Error(err))
			uploadErr = "Failed to upload new icon: " + err.Error()
		} else {
			iconURL = &u
		}
	}

	sk := &Skill{
		ID:       id,
		Name:     in.Name,
		IconURL:  iconURL,
		Category: nullable(in.Category),
	}
	if err := s.store.UpdateSkill(ctx, sk); err != nil {
		s.logger.Error("failed to update skill", zap.String("skill_id", id), zap.Error(err))
		return failure("Failed to update skill: " + err.Error())
	}

	s.logger.Info("skill updated", zap.String("skill_id", id))
	s.revalidate(ctx, "/admin/skills/"+id+"/edit", "/admin/skills", "/")
	return success(withWarning("Skill updated successfully!", uploadErr))
}

// Delete removes the skill row and then its icon
func (s *SkillService) Delete(ctx context.Context, actor, id string) Result {
	if !s.authorized(actor) {
		s.logger.Warn("unauthorized attempt to delete skill", zap.String("user_id", actor))
		return failure(UnauthorizedMessage)
	}

	iconURL, err := s.store.SkillIconURL(ctx, id)
	if err != nil {
		s.logger.Error("failed to fetch skill for deletion", zap.String("skill_id", id), zap.Error(err))
		return failure("Error fetching skill: " + notFoundMessage(err, "Skill not found"))
	}

	if err := s.store.DeleteSkill(ctx, id); err != nil {
		s.logger.Error("failed to delete skill", zap.String("skill_id", id), zap.Error(err))
		return failure("Failed to delete skill: " + err.Error())
	}

	if iconURL != nil {
		s.objects.remove(ctx, *iconURL)
	}
	s.logger.Info("skill deleted", zap.String("skill_id", id))

	s.revalidate(ctx, "/admin/skills", "/")
	return success("Skill deleted successfully!")
}

// Get returns one skill
func (s *SkillService) Get(ctx context.Context, id string) (*Skill, error) {
	return s.store.GetSkill(ctx, id)
}

// List returns all skills ordered by name
func (s *SkillService) List(ctx context.Context) ([]Skill, error) {
	return s.store.ListSkills(ctx)
}

func withWarning(message, warning string) string {
	if warning == "" {
		return message
	}
	return message + " (Warning: " + warning + ")"
}
