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
	ErrProgramNotFound   = repo.ErrProgramNotFound
	ErrProgramCodeExists = repo.ErrProgramCodeExists
)

// ProgramService owns the program lifecycle. Reads are scoped to what the
// caller's session can see; mutations require program management authority.
type ProgramService struct {
	programRepo *repo.ProgramRepo
	auditRepo   *repo.AuditRepo
	log         *logger.Logger
}

func NewProgramService(programRepo *repo.ProgramRepo, auditRepo *repo.AuditRepo, log *logger.Logger) *ProgramService {
	return &ProgramService{
		programRepo: programRepo,
		auditRepo:   auditRepo,
		log:         log,
	}
}

// ListPrograms returns the programs visible to the session. The session
// already computed this set from grants at load time, so no query runs here.
func (s *ProgramService) ListPrograms(sess *access.Session) []domain.Program {
	return sess.AvailablePrograms()
}

// GetProgram retrieves one program the session can see.
func (s *ProgramService) GetProgram(ctx context.Context, sess *access.Session, programID string) (*domain.Program, error) {
	result := sess.CheckAccess(domain.AccessRequest{
		ResourceType: domain.ResourceTypeProgram,
		ResourceID:   &programID,
		Action:       domain.RequestActionRead,
		Context:      domain.AccessContext{ProgramID: &programID},
	})
	if !result.Granted {
		return nil, access.NewPermissionError(result.Reason)
	}

	program, err := s.programRepo.GetByID(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("get program: %w", err)
	}
	return program, nil
}

// CreateProgram creates a new tenant. Only system administrators may do
// this; program-level admin grants do not reach across tenants.
func (s *ProgramService) CreateProgram(ctx context.Context, sess *access.Session, req *domain.CreateProgramRequest) (*domain.Program, error) {
	user, err := sess.User()
	if err != nil {
		return nil, err
	}
	if !access.HasRole(user, domain.RoleAdmin) {
		return nil, access.NewPermissionError("only system administrators can create programs")
	}

	program := &domain.Program{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Code:      req.Code,
		Status:    domain.ProgramStatusActive,
		CreatedBy: user.ID,
	}
	if req.Settings != nil {
		program.Settings = *req.Settings
	}

	if err := s.programRepo.Create(ctx, program); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "program created",
		logger.Module("program"),
		logger.Action("create"),
		zap.String("program_id", program.ID),
		zap.String("code", program.Code),
	)

	s.logAudit(ctx, user.ID, "program_created", program.ID,
		map[string]interface{}{"code": program.Code, "name": program.Name})

	return program, nil
}

// UpdateProgram applies a partial update. Requires management authority on
// the program.
func (s *ProgramService) UpdateProgram(ctx context.Context, sess *access.Session, programID string, req *domain.UpdateProgramRequest) (*domain.Program, error) {
	user, err := sess.User()
	if err != nil {
		return nil, err
	}
	if !access.CanManageProgram(user, programID) {
		return nil, access.NewPermissionError("program management requires an admin grant")
	}

	program, err := s.programRepo.GetByID(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("get program: %w", err)
	}

	if req.Name != nil {
		program.Name = *req.Name
	}
	if req.Status != nil {
		program.Status = *req.Status
	}
	if req.Settings != nil {
		program.Settings = *req.Settings
	}

	if err := s.programRepo.Update(ctx, program); err != nil {
		return nil, err
	}

	s.logAudit(ctx, user.ID, "program_updated", programID, nil)

	return program, nil
}

// ArchiveProgram retires a tenant. Grant records survive so an unarchive
// restores access; only system administrators may archive.
func (s *ProgramService) ArchiveProgram(ctx context.Context, sess *access.Session, programID string) error {
	user, err := sess.User()
	if err != nil {
		return err
	}
	if !access.HasRole(user, domain.RoleAdmin) {
		return access.NewPermissionError("only system administrators can archive programs")
	}

	if err := s.programRepo.Archive(ctx, programID); err != nil {
		return err
	}

	s.log.Info(ctx, "program archived",
		logger.Module("program"),
		logger.Action("archive"),
		zap.String("program_id", programID),
	)

	s.logAudit(ctx, user.ID, "program_archived", programID, nil)

	return nil
}

// logAudit records an audit row without failing the mutation it describes.
func (s *ProgramService) logAudit(ctx context.Context, actorID, action, programID string, detail map[string]interface{}) {
	if err := s.auditRepo.LogAccessEvent(ctx, actorID, actorID, action, &programID, nil, detail); err != nil {
		s.log.Warn(ctx, "audit write failed",
			logger.Module("program"),
			logger.Action(action),
			zap.Error(err),
		)
	}
}
