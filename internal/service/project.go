package service

import (
	"context"
	"fmt"

	"unitrack-api/internal/access"
	"unitrack-api/internal/domain"
	"unitrack-api/internal/observability/logger"
	"unitrack-api/internal/repo"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrProjectNotFound   = repo.ErrProjectNotFound
	ErrProjectCodeExists = repo.ErrProjectCodeExists
)

// ProjectService owns the project lifecycle inside a program. Every method
// takes the owning program id from the route, never from the body, so a
// project can only ever be touched through its own tenant.
type ProjectService struct {
	projectRepo *repo.ProjectRepo
	programRepo *repo.ProgramRepo
	auditRepo   *repo.AuditRepo
	log         *logger.Logger
}

func NewProjectService(projectRepo *repo.ProjectRepo, programRepo *repo.ProgramRepo, auditRepo *repo.AuditRepo, log *logger.Logger) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		programRepo: programRepo,
		auditRepo:   auditRepo,
		log:         log,
	}
}

// ListProjects returns the program's projects the caller can see. Members
// with a limited grant only see their assigned projects; program-wide and
// admin grants see everything in the program.
func (s *ProjectService) ListProjects(ctx context.Context, sess *access.Session, programID string) ([]domain.Project, error) {
	user, err := sess.User()
	if err != nil {
		return nil, err
	}

	projects, err := s.projectRepo.ListByProgram(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	visible := projects[:0]
	for _, p := range projects {
		if access.HasAccessToProject(user, p.ID, &programID) {
			visible = append(visible, p)
		}
	}
	return visible, nil
}

// GetProject retrieves one project the caller can see.
func (s *ProjectService) GetProject(ctx context.Context, sess *access.Session, programID, projectID string) (*domain.Project, error) {
	result := sess.CheckAccess(domain.AccessRequest{
		ResourceType: domain.ResourceTypeProject,
		ResourceID:   &projectID,
		Action:       domain.RequestActionRead,
		Context:      domain.AccessContext{ProgramID: &programID, ProjectID: &projectID},
	})
	if !result.Granted {
		return nil, access.NewPermissionError(result.Reason)
	}

	project, err := s.projectRepo.GetByID(ctx, programID, projectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return project, nil
}

// CreateProject creates a project in the program. Requires management
// authority on the program.
func (s *ProjectService) CreateProject(ctx context.Context, sess *access.Session, programID string, req *domain.CreateProjectRequest) (*domain.Project, error) {
	user, err := sess.User()
	if err != nil {
		return nil, err
	}
	if !access.CanManageProgram(user, programID) {
		return nil, access.NewPermissionError("creating projects requires program management authority")
	}

	// The program must exist and not be archived.
	program, err := s.programRepo.GetByID(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("get program: %w", err)
	}
	if program.Status == domain.ProgramStatusArchived {
		return nil, access.NewPermissionError("archived programs do not accept new projects")
	}

	project := &domain.Project{
		ID:        uuid.NewString(),
		ProgramID: programID,
		Name:      req.Name,
		Code:      req.Code,
		Status:    domain.ProjectStatusPlanning,
		CreatedBy: user.ID,
	}
	if req.Status != nil {
		project.Status = *req.Status
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "project created",
		logger.Module("project"),
		logger.Action("create"),
		zap.String("program_id", programID),
		zap.String("project_id", project.ID),
	)

	s.logAudit(ctx, user.ID, "project_created", programID, project.ID,
		map[string]interface{}{"code": project.Code, "name": project.Name})

	return project, nil
}

// UpdateProject applies a partial update. Requires management authority on
// the project or its program.
func (s *ProjectService) UpdateProject(ctx context.Context, sess *access.Session, programID, projectID string, req *domain.UpdateProjectRequest) (*domain.Project, error) {
	user, err := sess.User()
	if err != nil {
		return nil, err
	}
	if !access.CanManageProject(user, projectID, &programID) {
		return nil, access.NewPermissionError("updating a project requires management authority")
	}

	project, err := s.projectRepo.GetByID(ctx, programID, projectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Status != nil {
		project.Status = *req.Status
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, err
	}

	s.logAudit(ctx, user.ID, "project_updated", programID, projectID, nil)

	return project, nil
}

// DeleteProject removes a project and, via the store's cascade, the grant
// rows pointing at it. Requires management authority on the program itself:
// a project-level admin grant is not enough to destroy the project.
func (s *ProjectService) DeleteProject(ctx context.Context, sess *access.Session, programID, projectID string) error {
	user, err := sess.User()
	if err != nil {
		return err
	}
	if !access.CanManageProgram(user, programID) {
		return access.NewPermissionError("deleting a project requires program management authority")
	}

	if err := s.projectRepo.Delete(ctx, programID, projectID); err != nil {
		return err
	}

	s.log.Info(ctx, "project deleted",
		logger.Module("project"),
		logger.Action("delete"),
		zap.String("program_id", programID),
		zap.String("project_id", projectID),
	)

	s.logAudit(ctx, user.ID, "project_deleted", programID, projectID, nil)

	return nil
}

func (s *ProjectService) logAudit(ctx context.Context, actorID, action, programID, projectID string, detail map[string]interface{}) {
	if err := s.auditRepo.LogAccessEvent(ctx, actorID, actorID, action, &programID, &projectID, detail); err != nil {
		s.log.Warn(ctx, "audit write failed",
			logger.Module("project"),
			logger.Action(action),
			zap.Error(err),
		)
	}
}
