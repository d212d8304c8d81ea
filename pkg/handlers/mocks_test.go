package handlers

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/myschoolstory/collab-3d/pkg/audit"
	"github.com/myschoolstory/collab-3d/pkg/auth"
	"github.com/myschoolstory/collab-3d/pkg/models"
	"github.com/myschoolstory/collab-3d/pkg/services"
)

// testAuditor returns a security auditor wired to a discard logger.
func testAuditor() *audit.SecurityAuditor {
	return audit.NewSecurityAuditor(zap.NewNop())
}

// claimsContext returns a context carrying authenticated claims for userID,
// the way the auth middleware populates it.
func claimsContext(userID uuid.UUID) context.Context {
	claims := &auth.Claims{
		Email: "user@example.com",
		Name:  "Test User",
	}
	claims.Subject = userID.String()
	return context.WithValue(context.Background(), auth.ClaimsKey, claims)
}

// mockWorkspaceService is a configurable mock for workspace handler tests.
type mockWorkspaceService struct {
	workspace     *models.Workspace
	workspaceRole *models.WorkspaceWithRole
	workspaces    []*models.WorkspaceWithRole
	member        *models.WorkspaceMember
	members       []*models.MemberProfile
	err           error

	capturedName     string
	capturedIsPublic bool
	capturedPatch    services.WorkspacePatch
	capturedUserID   uuid.UUID
	capturedRole     string
}

func (m *mockWorkspaceService) Create(ctx context.Context, name, description string, isPublic bool) (*models.Workspace, error) {
	m.capturedName = name
	m.capturedIsPublic = isPublic
	if m.err != nil {
		return nil, m.err
	}
	if m.workspace != nil {
		return m.workspace, nil
	}
	return &models.Workspace{ID: uuid.New(), Name: name, Description: description, IsPublic: isPublic}, nil
}

func (m *mockWorkspaceService) ListForUser(ctx context.Context) ([]*models.WorkspaceWithRole, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.workspaces == nil {
		return []*models.WorkspaceWithRole{}, nil
	}
	return m.workspaces, nil
}

func (m *mockWorkspaceService) GetByID(ctx context.Context, id uuid.UUID) (*models.WorkspaceWithRole, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.workspaceRole != nil {
		return m.workspaceRole, nil
	}
	return &models.WorkspaceWithRole{
		Workspace: models.Workspace{ID: id, Name: "Test Workspace"},
		Role:      models.RoleViewer,
	}, nil
}

func (m *mockWorkspaceService) Update(ctx context.Context, id uuid.UUID, patch services.WorkspacePatch) (*models.Workspace, error) {
	m.capturedPatch = patch
	if m.err != nil {
		return nil, m.err
	}
	if m.workspace != nil {
		return m.workspace, nil
	}
	return &models.Workspace{ID: id, Name: "Test Workspace"}, nil
}

func (m *mockWorkspaceService) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]*models.MemberProfile, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.members == nil {
		return []*models.MemberProfile{}, nil
	}
	return m.members, nil
}

func (m *mockWorkspaceService) AddMember(ctx context.Context, workspaceID, userID uuid.UUID, role string) (*models.WorkspaceMember, error) {
	m.capturedUserID = userID
	m.capturedRole = role
	if m.err != nil {
		return nil, m.err
	}
	if m.member != nil {
		return m.member, nil
	}
	return &models.WorkspaceMember{WorkspaceID: workspaceID, UserID: userID, Role: role}, nil
}

func (m *mockWorkspaceService) UpdateMemberRole(ctx context.Context, workspaceID, userID uuid.UUID, newRole string) error {
	m.capturedUserID = userID
	m.capturedRole = newRole
	return m.err
}

func (m *mockWorkspaceService) RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error {
	m.capturedUserID = userID
	return m.err
}

// mockProjectService is a configurable mock for project handler tests.
type mockProjectService struct {
	project  *models.Project
	projects []*models.Project
	models   []*models.SceneModel
	err      error

	capturedName  string
	capturedPatch services.ProjectPatch
}

func (m *mockProjectService) Create(ctx context.Context, workspaceID uuid.UUID, name, description string, isPublic bool) (*models.Project, error) {
	m.capturedName = name
	if m.err != nil {
		return nil, m.err
	}
	if m.project != nil {
		return m.project, nil
	}
	return &models.Project{ID: uuid.New(), WorkspaceID: workspaceID, Name: name, Description: description, IsPublic: isPublic}, nil
}

func (m *mockProjectService) GetByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Project, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.projects == nil {
		return []*models.Project{}, nil
	}
	return m.projects, nil
}

func (m *mockProjectService) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.project != nil {
		return m.project, nil
	}
	return &models.Project{ID: id, Name: "Test Project"}, nil
}

func (m *mockProjectService) GetModels(ctx context.Context, projectID uuid.UUID) ([]*models.SceneModel, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.models == nil {
		return []*models.SceneModel{}, nil
	}
	return m.models, nil
}

func (m *mockProjectService) Update(ctx context.Context, id uuid.UUID, patch services.ProjectPatch) (*models.Project, error) {
	m.capturedPatch = patch
	if m.err != nil {
		return nil, m.err
	}
	if m.project != nil {
		return m.project, nil
	}
	return &models.Project{ID: id, Name: "Test Project"}, nil
}

// mockSceneModelService is a configurable mock for scene model handler tests.
type mockSceneModelService struct {
	model    *models.SceneModel
	children []*models.SceneModel
	err      error

	capturedInput     services.CreateModelInput
	capturedTransform models.Transform
	capturedVisible   bool
	capturedLocked    bool
}

func (m *mockSceneModelService) Create(ctx context.Context, projectID uuid.UUID, input services.CreateModelInput) (*models.SceneModel, error) {
	m.capturedInput = input
	if m.err != nil {
		return nil, m.err
	}
	if m.model != nil {
		return m.model, nil
	}
	return &models.SceneModel{ID: uuid.New(), ProjectID: projectID, Name: input.Name, Type: input.Type}, nil
}

func (m *mockSceneModelService) UpdateTransform(ctx context.Context, id uuid.UUID, transform models.Transform) (*models.SceneModel, error) {
	m.capturedTransform = transform
	if m.err != nil {
		return nil, m.err
	}
	if m.model != nil {
		return m.model, nil
	}
	return &models.SceneModel{ID: id, Transform: transform}, nil
}

func (m *mockSceneModelService) Remove(ctx context.Context, id uuid.UUID) error {
	return m.err
}

func (m *mockSceneModelService) SetVisibility(ctx context.Context, id uuid.UUID, visible bool) (*models.SceneModel, error) {
	m.capturedVisible = visible
	if m.err != nil {
		return nil, m.err
	}
	if m.model != nil {
		return m.model, nil
	}
	return &models.SceneModel{ID: id, Visible: visible}, nil
}

func (m *mockSceneModelService) SetLocked(ctx context.Context, id uuid.UUID, locked bool) (*models.SceneModel, error) {
	m.capturedLocked = locked
	if m.err != nil {
		return nil, m.err
	}
	if m.model != nil {
		return m.model, nil
	}
	return &models.SceneModel{ID: id, Locked: locked}, nil
}

func (m *mockSceneModelService) ListChildren(ctx context.Context, id uuid.UUID) ([]*models.SceneModel, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.children == nil {
		return []*models.SceneModel{}, nil
	}
	return m.children, nil
}

// mockMaterialService is a configurable mock for material handler tests.
type mockMaterialService struct {
	material  *models.Material
	materials []*models.Material
	err       error

	capturedName  string
	capturedSpec  models.MaterialSpec
	capturedPatch services.MaterialPatch
}

func (m *mockMaterialService) Create(ctx context.Context, workspaceID uuid.UUID, name string, spec models.MaterialSpec) (*models.Material, error) {
	m.capturedName = name
	m.capturedSpec = spec
	if m.err != nil {
		return nil, m.err
	}
	if m.material != nil {
		return m.material, nil
	}
	return &models.Material{ID: uuid.New(), WorkspaceID: workspaceID, Name: name, MaterialSpec: spec}, nil
}

func (m *mockMaterialService) Get(ctx context.Context, id uuid.UUID) (*models.Material, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.material != nil {
		return m.material, nil
	}
	return &models.Material{ID: id, Name: "Test Material"}, nil
}

func (m *mockMaterialService) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Material, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.materials == nil {
		return []*models.Material{}, nil
	}
	return m.materials, nil
}

func (m *mockMaterialService) Update(ctx context.Context, id uuid.UUID, patch services.MaterialPatch) (*models.Material, error) {
	m.capturedPatch = patch
	if m.err != nil {
		return nil, m.err
	}
	if m.material != nil {
		return m.material, nil
	}
	return &models.Material{ID: id, Name: "Test Material"}, nil
}

func (m *mockMaterialService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.err
}

// mockVersionService is a configurable mock for version handler tests.
type mockVersionService struct {
	version  *models.ProjectVersion
	versions []*models.ProjectVersion
	project  *models.Project
	err      error

	capturedThumbnail string
	capturedNumber    int
}

func (m *mockVersionService) Save(ctx context.Context, projectID uuid.UUID, thumbnail string) (*models.ProjectVersion, error) {
	m.capturedThumbnail = thumbnail
	if m.err != nil {
		return nil, m.err
	}
	if m.version != nil {
		return m.version, nil
	}
	return &models.ProjectVersion{ID: uuid.New(), ProjectID: projectID, Version: 1}, nil
}

func (m *mockVersionService) List(ctx context.Context, projectID uuid.UUID) ([]*models.ProjectVersion, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.versions == nil {
		return []*models.ProjectVersion{}, nil
	}
	return m.versions, nil
}

func (m *mockVersionService) Get(ctx context.Context, projectID uuid.UUID, number int) (*models.ProjectVersion, error) {
	m.capturedNumber = number
	if m.err != nil {
		return nil, m.err
	}
	if m.version != nil {
		return m.version, nil
	}
	return &models.ProjectVersion{ID: uuid.New(), ProjectID: projectID, Version: number}, nil
}

func (m *mockVersionService) Restore(ctx context.Context, projectID uuid.UUID, number int) (*models.Project, error) {
	m.capturedNumber = number
	if m.err != nil {
		return nil, m.err
	}
	if m.project != nil {
		return m.project, nil
	}
	return &models.Project{ID: projectID, Name: "Test Project"}, nil
}

// mockPresenceService is a configurable mock for presence handler tests.
type mockPresenceService struct {
	sessions []*models.PresenceSession
	err      error

	capturedCursor *models.Vec3
}

func (m *mockPresenceService) Heartbeat(ctx context.Context, projectID uuid.UUID, cursor *models.Vec3) error {
	m.capturedCursor = cursor
	return m.err
}

func (m *mockPresenceService) List(ctx context.Context, projectID uuid.UUID) ([]*models.PresenceSession, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.sessions == nil {
		return []*models.PresenceSession{}, nil
	}
	return m.sessions, nil
}

// mockUserService is a configurable mock for user handler tests.
type mockUserService struct {
	user *models.User
	err  error
}

func (m *mockUserService) Provision(ctx context.Context) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.user != nil {
		return m.user, nil
	}
	return &models.User{ID: uuid.New(), Email: "user@example.com", Name: "Test User"}, nil
}

func (m *mockUserService) Me(ctx context.Context) (*models.User, error) {
	return m.Provision(ctx)
}
