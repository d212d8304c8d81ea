package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/myschoolstory/collab-3d/pkg/apperrors"
	"github.com/myschoolstory/collab-3d/pkg/models"
)

func newTestMaterialService(materialRepo *mockMaterialRepository, wsRepo *mockWorkspaceRepository) MaterialService {
	return NewMaterialService(materialRepo, wsRepo, newTestAccess(wsRepo), zap.NewNop())
}

func validSpec() models.MaterialSpec {
	return models.MaterialSpec{
		Type:       models.MaterialPBR,
		Color:      "#aabbcc",
		Properties: map[string]float64{"roughness": 0.4, "metalness": 0.9, "ior": 1.5},
	}
}

func TestMaterialCreate_Success(t *testing.T) {
	userID := uuid.New()
	workspace := &models.Workspace{ID: uuid.New()}
	materialRepo := &mockMaterialRepository{}
	service := newTestMaterialService(materialRepo, memberRepo(workspace, userID, models.RoleEditor))

	material, err := service.Create(testContextWithAuth(userID), workspace.ID, "Brushed Steel", validSpec())
	require.NoError(t, err)

	assert.Equal(t, workspace.ID, material.WorkspaceID)
	assert.Equal(t, "Brushed Steel", material.Name)
	assert.Equal(t, userID, material.CreatedBy)
	require.NotNil(t, materialRepo.capturedMaterial)
}

func TestMaterialCreate_InvalidSpec(t *testing.T) {
	userID := uuid.New()
	workspace := &models.Workspace{ID: uuid.New()}
	service := newTestMaterialService(&mockMaterialRepository{}, memberRepo(workspace, userID, models.RoleEditor))

	spec := models.MaterialSpec{Type: models.MaterialBasic, Properties: map[string]float64{"opacity": 1.5}}
	_, err := service.Create(testContextWithAuth(userID), workspace.ID, "Bad", spec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opacity")
}

func TestMaterialCreate_ViewerDenied(t *testing.T) {
	userID := uuid.New()
	workspace := &models.Workspace{ID: uuid.New()}
	service := newTestMaterialService(&mockMaterialRepository{}, memberRepo(workspace, userID, models.RoleViewer))

	_, err := service.Create(testContextWithAuth(userID), workspace.ID, "Steel", validSpec())
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestMaterialCreate_DuplicateName(t *testing.T) {
	userID := uuid.New()
	workspace := &models.Workspace{ID: uuid.New()}
	materialRepo := &mockMaterialRepository{createErr: apperrors.ErrConflict}
	service := newTestMaterialService(materialRepo, memberRepo(workspace, userID, models.RoleEditor))

	_, err := service.Create(testContextWithAuth(userID), workspace.ID, "Steel", validSpec())
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestMaterialGet_Member(t *testing.T) {
	userID := uuid.New()
	workspace := &models.Workspace{ID: uuid.New()}
	material := &models.Material{ID: uuid.New(), WorkspaceID: workspace.ID, Name: "Steel"}
	service := newTestMaterialService(&mockMaterialRepository{material: material}, memberRepo(workspace, userID, models.RoleViewer))

	got, err := service.Get(testContextWithAuth(userID), material.ID)
	require.NoError(t, err)
	assert.Equal(t, material.ID, got.ID)
}

func TestMaterialGet_PublicWorkspaceNonMember(t *testing.T) {
	workspace := &models.Workspace{ID: uuid.New(), IsPublic: true}
	material := &models.Material{ID: uuid.New(), WorkspaceID: workspace.ID}
	service := newTestMaterialService(&mockMaterialRepository{material: material}, nonMemberRepo(workspace))

	_, err := service.Get(testContextWithAuth(uuid.New()), material.ID)
	assert.NoError(t, err)
}

func TestMaterialGet_PrivateWorkspaceLooksAbsent(t *testing.T) {
	workspace := &models.Workspace{ID: uuid.New()}
	material := &models.Material{ID: uuid.New(), WorkspaceID: workspace.ID}
	service := newTestMaterialService(&mockMaterialRepository{material: material}, nonMemberRepo(workspace))

	_, err := service.Get(testContextWithAuth(uuid.New()), material.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMaterialListByWorkspace_NonMemberGetsEmpty(t *testing.T) {
	workspace := &models.Workspace{ID: uuid.New()}
	materialRepo := &mockMaterialRepository{materials: []*models.Material{{ID: uuid.New()}}}
	service := newTestMaterialService(materialRepo, nonMemberRepo(workspace))

	materials, err := service.ListByWorkspace(testContextWithAuth(uuid.New()), workspace.ID)
	require.NoError(t, err)
	assert.NotNil(t, materials)
	assert.Empty(t, materials)
}

func TestMaterialListByWorkspace_AbsentWorkspaceGetsEmpty(t *testing.T) {
	service := newTestMaterialService(&mockMaterialRepository{}, &mockWorkspaceRepository{getErr: apperrors.ErrNotFound})

	materials, err := service.ListByWorkspace(testContextWithAuth(uuid.New()), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, materials)
}

func TestMaterialUpdate_RenameAndReplaceSpec(t *testing.T) {
	userID := uuid.New()
	workspace := &models.Workspace{ID: uuid.New()}
	material := &models.Material{
		ID:           uuid.New(),
		WorkspaceID:  workspace.ID,
		Name:         "Steel",
		MaterialSpec: models.MaterialSpec{Type: models.MaterialBasic},
	}
	materialRepo := &mockMaterialRepository{material: material}
	service := newTestMaterialService(materialRepo, memberRepo(workspace, userID, models.RoleEditor))

	name := "Polished Steel"
	spec := validSpec()
	got, err := service.Update(testContextWithAuth(userID), material.ID, MaterialPatch{Name: &name, Spec: &spec})
	require.NoError(t, err)

	assert.Equal(t, "Polished Steel", got.Name)
	assert.Equal(t, models.MaterialPBR, got.Type)
}

func TestMaterialUpdate_RenameCollision(t *testing.T) {
	userID := uuid.New()
	workspace := &models.Workspace{ID: uuid.New()}
	material := &models.Material{ID: uuid.New(), WorkspaceID: workspace.ID, Name: "Steel"}
	materialRepo := &mockMaterialRepository{material: material, updateErr: apperrors.ErrConflict}
	service := newTestMaterialService(materialRepo, memberRepo(workspace, userID, models.RoleEditor))

	name := "Wood"
	_, err := service.Update(testContextWithAuth(userID), material.ID, MaterialPatch{Name: &name})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestMaterialDelete(t *testing.T) {
	userID := uuid.New()
	workspace := &models.Workspace{ID: uuid.New()}
	material := &models.Material{ID: uuid.New(), WorkspaceID: workspace.ID}
	materialRepo := &mockMaterialRepository{material: material}
	service := newTestMaterialService(materialRepo, memberRepo(workspace, userID, models.RoleEditor))

	err := service.Delete(testContextWithAuth(userID), material.ID)
	require.NoError(t, err)
	assert.Equal(t, material.ID, materialRepo.capturedDeletedID)
}

func TestMaterialDelete_ViewerDenied(t *testing.T) {
	userID := uuid.New()
	workspace := &models.Workspace{ID: uuid.New()}
	material := &models.Material{ID: uuid.New(), WorkspaceID: workspace.ID}
	service := newTestMaterialService(&mockMaterialRepository{material: material}, memberRepo(workspace, userID, models.RoleViewer))

	err := service.Delete(testContextWithAuth(userID), material.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}
