package services

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/myschoolstory/collab-3d/pkg/apperrors"
	"github.com/myschoolstory/collab-3d/pkg/audit"
	"github.com/myschoolstory/collab-3d/pkg/auth"
	"github.com/myschoolstory/collab-3d/pkg/models"
)

// testContextWithAuth creates a context carrying JWT claims for the given
// user.
func testContextWithAuth(userID uuid.UUID) context.Context {
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID.String(),
		},
		Email: "user@example.com",
		Name:  "Test User",
	}
	return context.WithValue(context.Background(), auth.ClaimsKey, claims)
}

// newTestAccess builds a real access service over the mock workspace
// repository, so predicate logic runs in every service test instead of being
// mocked away.
func newTestAccess(repo *mockWorkspaceRepository) AccessService {
	return NewAccessService(repo, audit.NewSecurityAuditor(zap.NewNop()), zap.NewNop())
}

// mockWorkspaceRepository is a configurable mock for workspace storage.
type mockWorkspaceRepository struct {
	workspace  *models.Workspace
	workspaces []*models.WorkspaceWithRole
	member     *models.WorkspaceMember
	members    []*models.MemberProfile

	getErr          error
	createErr       error
	updateErr       error
	listErr         error
	getMemberErr    error
	addMemberErr    error
	updateRoleErr   error
	removeMemberErr error

	capturedWorkspace *models.Workspace
	capturedMember    *models.WorkspaceMember
	capturedUserID    uuid.UUID
	capturedRole      string
}

func (m *mockWorkspaceRepository) CreateWithOwner(ctx context.Context, workspace *models.Workspace) error {
	if m.createErr != nil {
		return m.createErr
	}
	if workspace.ID == uuid.Nil {
		workspace.ID = uuid.New()
	}
	m.capturedWorkspace = workspace
	return nil
}

func (m *mockWorkspaceRepository) Get(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.workspace, nil
}

func (m *mockWorkspaceRepository) Update(ctx context.Context, workspace *models.Workspace) error {
	m.capturedWorkspace = workspace
	return m.updateErr
}

func (m *mockWorkspaceRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.WorkspaceWithRole, error) {
	m.capturedUserID = userID
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.workspaces, nil
}

func (m *mockWorkspaceRepository) GetMember(ctx context.Context, workspaceID, userID uuid.UUID) (*models.WorkspaceMember, error) {
	if m.getMemberErr != nil {
		return nil, m.getMemberErr
	}
	return m.member, nil
}

func (m *mockWorkspaceRepository) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]*models.MemberProfile, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.members, nil
}

func (m *mockWorkspaceRepository) AddMember(ctx context.Context, member *models.WorkspaceMember) error {
	if m.addMemberErr != nil {
		return m.addMemberErr
	}
	m.capturedMember = member
	return nil
}

func (m *mockWorkspaceRepository) UpdateMemberRole(ctx context.Context, workspaceID, userID uuid.UUID, newRole string) error {
	m.capturedUserID = userID
	m.capturedRole = newRole
	return m.updateRoleErr
}

func (m *mockWorkspaceRepository) RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error {
	m.capturedUserID = userID
	return m.removeMemberErr
}

// mockProjectRepository is a configurable mock for project storage.
type mockProjectRepository struct {
	project  *models.Project
	projects []*models.Project

	getErr    error
	createErr error
	updateErr error
	listErr   error

	capturedProject *models.Project
	capturedSeeds   []*models.SceneModel
}

func (m *mockProjectRepository) CreateWithSeeds(ctx context.Context, project *models.Project, seeds []*models.SceneModel) error {
	if m.createErr != nil {
		return m.createErr
	}
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	m.capturedProject = project
	m.capturedSeeds = seeds
	return nil
}

func (m *mockProjectRepository) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.project, nil
}

func (m *mockProjectRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Project, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.projects, nil
}

func (m *mockProjectRepository) Update(ctx context.Context, project *models.Project) error {
	m.capturedProject = project
	return m.updateErr
}

// mockSceneModelRepository is a configurable mock for scene model storage.
type mockSceneModelRepository struct {
	model    *models.SceneModel
	list     []*models.SceneModel
	children []*models.SceneModel

	getErr     error
	createErr  error
	mutateErr  error
	listErr    error
	replaceErr error

	capturedModel        *models.SceneModel
	capturedTransform    models.Transform
	capturedVisible      bool
	capturedLocked       bool
	capturedActor        uuid.UUID
	capturedDeletedID    uuid.UUID
	capturedReplacements []*models.SceneModel
}

func (m *mockSceneModelRepository) Create(ctx context.Context, model *models.SceneModel) error {
	if m.createErr != nil {
		return m.createErr
	}
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
	}
	m.capturedModel = model
	return nil
}

func (m *mockSceneModelRepository) Get(ctx context.Context, id uuid.UUID) (*models.SceneModel, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.model, nil
}

func (m *mockSceneModelRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.SceneModel, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.list, nil
}

func (m *mockSceneModelRepository) ListChildren(ctx context.Context, parentID uuid.UUID) ([]*models.SceneModel, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.children, nil
}

func (m *mockSceneModelRepository) UpdateTransform(ctx context.Context, id uuid.UUID, transform models.Transform, actor uuid.UUID) error {
	if m.mutateErr != nil {
		return m.mutateErr
	}
	m.capturedTransform = transform
	m.capturedActor = actor
	return nil
}

func (m *mockSceneModelRepository) SetVisibility(ctx context.Context, id uuid.UUID, visible bool, actor uuid.UUID) error {
	if m.mutateErr != nil {
		return m.mutateErr
	}
	m.capturedVisible = visible
	m.capturedActor = actor
	return nil
}

func (m *mockSceneModelRepository) SetLocked(ctx context.Context, id uuid.UUID, locked bool, actor uuid.UUID) error {
	if m.mutateErr != nil {
		return m.mutateErr
	}
	m.capturedLocked = locked
	m.capturedActor = actor
	return nil
}

func (m *mockSceneModelRepository) Delete(ctx context.Context, id uuid.UUID, actor uuid.UUID) error {
	if m.mutateErr != nil {
		return m.mutateErr
	}
	m.capturedDeletedID = id
	m.capturedActor = actor
	return nil
}

func (m *mockSceneModelRepository) ReplaceAll(ctx context.Context, projectID uuid.UUID, replacements []*models.SceneModel, actor uuid.UUID) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.capturedReplacements = replacements
	m.capturedActor = actor
	return nil
}

// mockMaterialRepository is a configurable mock for the material library.
type mockMaterialRepository struct {
	material  *models.Material
	materials []*models.Material

	getErr    error
	createErr error
	updateErr error
	deleteErr error
	listErr   error

	capturedMaterial  *models.Material
	capturedDeletedID uuid.UUID
}

func (m *mockMaterialRepository) Create(ctx context.Context, material *models.Material) error {
	if m.createErr != nil {
		return m.createErr
	}
	if material.ID == uuid.Nil {
		material.ID = uuid.New()
	}
	m.capturedMaterial = material
	return nil
}

func (m *mockMaterialRepository) Get(ctx context.Context, id uuid.UUID) (*models.Material, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.material, nil
}

func (m *mockMaterialRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Material, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.materials, nil
}

func (m *mockMaterialRepository) Update(ctx context.Context, material *models.Material) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.capturedMaterial = material
	return nil
}

func (m *mockMaterialRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.capturedDeletedID = id
	return nil
}

// mockVersionRepository is a configurable mock for version snapshots.
type mockVersionRepository struct {
	version     *models.ProjectVersion
	versions    []*models.ProjectVersion
	nextVersion int

	saveErr       error
	saveConflicts int // fail this many Saves with ErrConflict before succeeding
	getErr        error
	listErr       error

	saveCalls       int
	capturedVersion *models.ProjectVersion
}

func (m *mockVersionRepository) Save(ctx context.Context, version *models.ProjectVersion) error {
	m.saveCalls++
	if m.saveConflicts > 0 {
		m.saveConflicts--
		return apperrors.ErrConflict
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	if version.ID == uuid.Nil {
		version.ID = uuid.New()
	}
	if m.nextVersion == 0 {
		m.nextVersion = 1
	}
	version.Version = m.nextVersion
	m.capturedVersion = version
	return nil
}

func (m *mockVersionRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.ProjectVersion, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.versions, nil
}

func (m *mockVersionRepository) GetByNumber(ctx context.Context, projectID uuid.UUID, number int) (*models.ProjectVersion, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.version, nil
}

// mockUserRepository is a configurable mock for user storage.
type mockUserRepository struct {
	user *models.User

	upsertErr error
	getErr    error

	capturedUser *models.User
}

func (m *mockUserRepository) Upsert(ctx context.Context, user *models.User) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.capturedUser = user
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.user, nil
}
