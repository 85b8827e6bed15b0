package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"lineops/internal/domain"
	"lineops/internal/imagefit"
	"lineops/internal/integrations/line"
)

// ---------------------------------------------------------------------------
// fakes
// ---------------------------------------------------------------------------

type fakeMenuAPI struct {
	*fakeAliasStore

	menus      []domain.RichMenuSummary
	uploads    map[string]string
	defaultID  string
	nextID     int
	failCreate error
	failUpload error
	ops        []string
}

func newFakeMenuAPI() *fakeMenuAPI {
	return &fakeMenuAPI{fakeAliasStore: newFakeAliasStore(), uploads: map[string]string{}}
}

func (f *fakeMenuAPI) CreateRichMenu(_ context.Context, menu domain.RichMenu) (string, error) {
	if f.failCreate != nil {
		return "", f.failCreate
	}
	f.nextID++
	id := fmt.Sprintf("rm-new-%d", f.nextID)
	f.menus = append(f.menus, domain.RichMenuSummary{RichMenuID: id, Name: menu.Name})
	f.ops = append(f.ops, "create "+menu.Name)
	return id, nil
}

func (f *fakeMenuAPI) UploadRichMenuImage(_ context.Context, id, contentType string, data []byte) error {
	if f.failUpload != nil {
		return f.failUpload
	}
	f.uploads[id] = contentType + ":" + string(data)
	f.ops = append(f.ops, "upload "+id)
	return nil
}

func (f *fakeMenuAPI) ListRichMenus(context.Context) ([]domain.RichMenuSummary, error) {
	return append([]domain.RichMenuSummary(nil), f.menus...), nil
}

func (f *fakeMenuAPI) DeleteRichMenu(_ context.Context, id string) error {
	for i, m := range f.menus {
		if m.RichMenuID == id {
			f.menus = append(f.menus[:i], f.menus[i+1:]...)
			f.ops = append(f.ops, "delete menu "+id)
			return nil
		}
	}
	return &line.HTTPStatusError{StatusCode: http.StatusNotFound}
}

func (f *fakeMenuAPI) ListAliases(context.Context) ([]domain.Alias, error) {
	var out []domain.Alias
	for _, id := range []string{"menu-a", "menu-b", "legacy"} {
		if rm, ok := f.aliases[id]; ok {
			out = append(out, domain.Alias{AliasID: id, RichMenuID: rm})
		}
	}
	return out, nil
}

func (f *fakeMenuAPI) DeleteAlias(_ context.Context, aliasID string) error {
	delete(f.aliases, aliasID)
	f.ops = append(f.ops, "delete alias "+aliasID)
	return nil
}

func (f *fakeMenuAPI) SetDefaultRichMenu(_ context.Context, id string) error {
	f.defaultID = id
	f.ops = append(f.ops, "default "+id)
	return nil
}

func (f *fakeMenuAPI) DefaultRichMenu(context.Context) (string, error) {
	return f.defaultID, nil
}

func fakePrepare(path string, _ bool, _ string) (imagefit.Result, error) {
	return imagefit.Result{Data: []byte(path), ContentType: imagefit.MIMEJPEG}, nil
}

func newTestDeployer(t *testing.T, api MenuAPI) *DeployService {
	t.Helper()
	s, err := NewDeployService(api, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	s.prepare = fakePrepare
	return s
}

func tabsInput(t *testing.T) DeployInput {
	t.Helper()
	plans, def, err := TabsLayout(TabsOptions{ChatBar: "劇團資訊", ImageA: "a.png", ImageB: "b.png"})
	require.NoError(t, err)
	return DeployInput{Plans: plans, DefaultKey: def, Fit: true}
}

// ---------------------------------------------------------------------------
// Deploy
// ---------------------------------------------------------------------------

func TestNewDeployService_NilAPI(t *testing.T) {
	_, err := NewDeployService(nil, nil)
	require.Error(t, err)
}

func TestDeploy_Tabs(t *testing.T) {
	api := newFakeMenuAPI()
	out, err := newTestDeployer(t, api).Deploy(context.Background(), tabsInput(t))
	require.NoError(t, err)

	require.Len(t, out.Menus, 2)
	require.Equal(t, "rm-new-1", out.Menus[0].RichMenuID)
	require.Equal(t, AliasCreated, out.Menus[0].AliasResult)
	require.Equal(t, map[string]string{"menu-a": "rm-new-1", "menu-b": "rm-new-2"}, api.aliases)
	require.Equal(t, "image/jpeg:a.png", api.uploads["rm-new-1"])
	require.Equal(t, "image/jpeg:b.png", api.uploads["rm-new-2"])

	require.Equal(t, "rm-new-1", out.DefaultID)
	require.Equal(t, "rm-new-1", out.CurrentDefault)
	require.Equal(t, []string{
		"create 選單A", "upload rm-new-1",
		"create 選單B", "upload rm-new-2",
		"default rm-new-1",
	}, api.ops)
}

func TestDeploy_RerunConvergesAliases(t *testing.T) {
	api := newFakeMenuAPI()
	svc := newTestDeployer(t, api)
	in := tabsInput(t)

	_, err := svc.Deploy(context.Background(), in)
	require.NoError(t, err)
	out, err := svc.Deploy(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, AliasUpdated, out.Menus[1].AliasResult)
	require.Equal(t, map[string]string{"menu-a": "rm-new-3", "menu-b": "rm-new-4"}, api.aliases)
}

func TestDeploy_DeleteOthersPrunesAliasesFirst(t *testing.T) {
	api := newFakeMenuAPI()
	api.menus = []domain.RichMenuSummary{{RichMenuID: "rm-old"}}
	api.aliases["legacy"] = "rm-old"

	in := tabsInput(t)
	in.DeleteOthers = true
	out, err := newTestDeployer(t, api).Deploy(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, []string{"legacy"}, out.DeletedAliases)
	require.Equal(t, []string{"rm-old"}, out.DeletedMenus)
	require.Len(t, api.menus, 2)
	require.Equal(t, []string{"delete alias legacy", "delete menu rm-old"}, api.ops[len(api.ops)-2:])
}

func TestDeploy_LinksWithoutDefault(t *testing.T) {
	plans, _, err := LinksLayout(testLinksOptions())
	require.NoError(t, err)

	api := newFakeMenuAPI()
	out, err := newTestDeployer(t, api).Deploy(context.Background(), DeployInput{Plans: plans})
	require.NoError(t, err)
	require.Empty(t, out.DefaultID)
	require.Empty(t, api.defaultID)
	require.Empty(t, api.aliases)
	require.Empty(t, api.calls, "no alias calls without an alias")
}

func TestDeploy_UnknownDefaultKeyFailsBeforeAnyCall(t *testing.T) {
	api := newFakeMenuAPI()
	in := tabsInput(t)
	in.DefaultKey = "menu-c"

	_, err := newTestDeployer(t, api).Deploy(context.Background(), in)
	require.Equal(t, ErrorInvalidInput, CodeOf(err))
	require.Empty(t, api.ops)
}

func TestDeploy_InvalidPlans(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*DeployInput)
	}{
		{"no plans", func(in *DeployInput) { in.Plans = nil }},
		{"duplicate key", func(in *DeployInput) { in.Plans[1].Key = in.Plans[0].Key }},
		{"duplicate alias", func(in *DeployInput) { in.Plans[1].Alias = in.Plans[0].Alias }},
		{"missing image", func(in *DeployInput) { in.Plans[0].ImagePath = "" }},
		{"invalid menu", func(in *DeployInput) { in.Plans[0].Menu.ChatBarText = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := newFakeMenuAPI()
			in := tabsInput(t)
			tc.mutate(&in)
			_, err := newTestDeployer(t, api).Deploy(context.Background(), in)
			require.Equal(t, ErrorInvalidInput, CodeOf(err))
			require.Empty(t, api.ops)
		})
	}
}

func TestDeploy_ImageFailureBeforeAnyCall(t *testing.T) {
	api := newFakeMenuAPI()
	svc := newTestDeployer(t, api)
	svc.prepare = func(path string, fit bool, workDir string) (imagefit.Result, error) {
		if path == "b.png" {
			return imagefit.Result{}, os.ErrNotExist
		}
		return fakePrepare(path, fit, workDir)
	}

	_, err := svc.Deploy(context.Background(), tabsInput(t))
	require.Equal(t, ErrorPreconditionFailed, CodeOf(err))
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Empty(t, api.ops)
}

func TestDeploy_EmptyImageFailsBeforeAnyCall(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, image.NewPaletted(image.Rect(0, 0, 0, 0), color.Palette{color.Black}), nil))
	empty := filepath.Join(t.TempDir(), "empty.gif")
	require.NoError(t, os.WriteFile(empty, buf.Bytes(), 0o644))

	plans, def, err := TabsLayout(TabsOptions{ChatBar: "劇團資訊", ImageA: empty, ImageB: empty})
	require.NoError(t, err)

	api := newFakeMenuAPI()
	svc := newTestDeployer(t, api)
	svc.prepare = PrepareImage
	_, err = svc.Deploy(context.Background(), DeployInput{Plans: plans, DefaultKey: def, Fit: true, WorkDir: t.TempDir()})
	require.Equal(t, ErrorPreconditionFailed, CodeOf(err))
	require.ErrorIs(t, err, imagefit.ErrEmptyImage)
	require.Empty(t, api.ops)
}

func TestDeploy_UploadFailureStopsRun(t *testing.T) {
	api := newFakeMenuAPI()
	api.failUpload = &line.HTTPStatusError{StatusCode: http.StatusRequestEntityTooLarge}

	out, err := newTestDeployer(t, api).Deploy(context.Background(), tabsInput(t))
	require.Equal(t, ErrorUpstream, CodeOf(err))
	require.Empty(t, out.Menus)
	require.Empty(t, api.aliases)
	require.Empty(t, api.defaultID)
}

func TestDeploy_AliasFailureIsFatal(t *testing.T) {
	api := newFakeMenuAPI()
	api.updateErr = errors.New("connection refused")

	_, err := newTestDeployer(t, api).Deploy(context.Background(), tabsInput(t))
	require.Equal(t, ErrorUpstream, CodeOf(err))
	require.Empty(t, api.defaultID)
}

// ---------------------------------------------------------------------------
// PrepareImage
// ---------------------------------------------------------------------------

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "src.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))))
	return path
}

func TestPrepareImage_ExactModeRejectsWrongSize(t *testing.T) {
	_, err := PrepareImage(writePNG(t, 100, 50), false, "")
	require.ErrorIs(t, err, imagefit.ErrDimensions)
}

func TestPrepareImage_FitWritesCanvas(t *testing.T) {
	dir := t.TempDir()
	res, err := PrepareImage(writePNG(t, 100, 50), true, dir)
	require.NoError(t, err)
	require.Equal(t, imagefit.MIMEJPEG, res.ContentType)
	require.Equal(t, filepath.Join(dir, "src_contain.jpg"), res.Path)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(res.Data))
	require.NoError(t, err)
	require.Equal(t, domain.MenuWidth, cfg.Width)
	require.Equal(t, domain.MenuHeight, cfg.Height)
}
