package content

import (
	"context"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, c *GeneratedContent) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repo) GetForUser(ctx context.Context, userID, id string) (*GeneratedContent, error) {
	var c GeneratedContent
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns the caller's generated contents newest first,
// optionally filtered by type.
func (r *Repo) List(ctx context.Context, userID string, contentType Type) ([]GeneratedContent, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if contentType != "" {
		q = q.Where("content_type = ?", contentType)
	}
	var out []GeneratedContent
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) CreateProject(ctx context.Context, p *Project) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *Repo) GetProject(ctx context.Context, userID, id string) (*Project, error) {
	var p Project
	if err := r.db.WithContext(ctx).
		Preload("Contents").
		Where("id = ? AND user_id = ?", id, userID).
		First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) ListProjects(ctx context.Context, userID string) ([]Project, error) {
	var out []Project
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) UpdateProject(ctx context.Context, p *Project) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *Repo) DeleteProject(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&Project{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AttachToProject links a generated content row to a project. Both
// must belong to the caller.
func (r *Repo) AttachToProject(ctx context.Context, userID, projectID, contentID string) error {
	p, err := r.GetProject(ctx, userID, projectID)
	if err != nil {
		return err
	}
	c, err := r.GetForUser(ctx, userID, contentID)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(p).Association("Contents").Append(c)
}

func (r *Repo) DetachFromProject(ctx context.Context, userID, projectID, contentID string) error {
	p, err := r.GetProject(ctx, userID, projectID)
	if err != nil {
		return err
	}
	c, err := r.GetForUser(ctx, userID, contentID)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(p).Association("Contents").Delete(c)
}

// Video job CRUD, same shape as succeeded/failed marking for any job.

func (r *Repo) CreateVideoJob(ctx context.Context, job *VideoJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *Repo) GetVideoJob(ctx context.Context, id string) (*VideoJob, error) {
	var j VideoJob
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *Repo) MarkVideoJobRunning(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&VideoJob{}).
		Where("id = ? AND status = ?", id, JobQueued).
		Update("status", JobRunning).Error
}

func (r *Repo) MarkVideoJobSucceeded(ctx context.Context, id, contentID string) error {
	return r.db.WithContext(ctx).Model(&VideoJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            JobSucceeded,
			"result_content_id": contentID,
			"error":             nil,
		}).Error
}

func (r *Repo) MarkVideoJobFailed(ctx context.Context, id, errMsg string) error {
	return r.db.WithContext(ctx).Model(&VideoJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            JobFailed,
			"error":             errMsg,
			"result_content_id": nil,
		}).Error
}
