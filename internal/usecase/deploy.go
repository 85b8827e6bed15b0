package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"lineops/internal/domain"
	"lineops/internal/imagefit"
)

// MenuAPI is the part of the LINE client used by the deployer.
type MenuAPI interface {
	AliasAPI
	CreateRichMenu(ctx context.Context, menu domain.RichMenu) (string, error)
	UploadRichMenuImage(ctx context.Context, richMenuID, contentType string, data []byte) error
	ListRichMenus(ctx context.Context) ([]domain.RichMenuSummary, error)
	DeleteRichMenu(ctx context.Context, richMenuID string) error
	ListAliases(ctx context.Context) ([]domain.Alias, error)
	DeleteAlias(ctx context.Context, aliasID string) error
	SetDefaultRichMenu(ctx context.Context, richMenuID string) error
	DefaultRichMenu(ctx context.Context) (string, error)
}

// ImagePreparer turns a source image path into upload-ready content.
type ImagePreparer func(path string, fit bool, workDir string) (imagefit.Result, error)

// PrepareImage fits the image to the menu canvas, or with fit=false checks
// that it already has the exact canvas size.
func PrepareImage(path string, fit bool, workDir string) (imagefit.Result, error) {
	if fit {
		return imagefit.FitFile(path, domain.MenuWidth, domain.MenuHeight, imagefit.Black, workDir)
	}
	return imagefit.LoadExact(path, domain.MenuWidth, domain.MenuHeight)
}

// DeployInput describes one deployer run. DefaultKey selects the plan to make
// the default for all users; empty leaves the default untouched.
type DeployInput struct {
	Plans        []MenuPlan
	DefaultKey   string
	DeleteOthers bool
	Fit          bool
	WorkDir      string
}

type DeployedMenu struct {
	Key         string
	RichMenuID  string
	Alias       string
	AliasResult AliasResult
	FittedPath  string
}

type DeployOutput struct {
	Menus          []DeployedMenu
	DefaultID      string
	CurrentDefault string
	DeletedAliases []string
	DeletedMenus   []string
}

// DeployService creates menus, binds aliases, sets the default and prunes
// leftovers.
type DeployService struct {
	api     MenuAPI
	prepare ImagePreparer
	logger  *slog.Logger
}

func NewDeployService(api MenuAPI, logger *slog.Logger) (*DeployService, error) {
	if api == nil {
		return nil, errors.New("usecase: menu api must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DeployService{api: api, prepare: PrepareImage, logger: logger}, nil
}

// Deploy runs the whole deployment. Input and image problems are reported
// before the first remote call; after that the first remote failure aborts
// the run and earlier remote changes stay in place.
func (s *DeployService) Deploy(ctx context.Context, in DeployInput) (DeployOutput, error) {
	if err := validatePlans(in); err != nil {
		return DeployOutput{}, err
	}

	images := make([]imagefit.Result, len(in.Plans))
	for i, p := range in.Plans {
		img, err := s.prepare(p.ImagePath, in.Fit, in.WorkDir)
		if err != nil {
			return DeployOutput{}, newError(ErrorPreconditionFailed, "image_error", fmt.Errorf("%s: %w", p.Key, err))
		}
		if img.Path != "" {
			s.logger.InfoContext(ctx, "image fitted", "key", p.Key, "path", img.Path,
				"width", domain.MenuWidth, "height", domain.MenuHeight)
		}
		images[i] = img
	}

	var out DeployOutput
	ids := make(map[string]string, len(in.Plans))
	for i, p := range in.Plans {
		id, err := s.api.CreateRichMenu(ctx, p.Menu)
		if err != nil {
			return out, newError(ErrorUpstream, "create_menu_error", fmt.Errorf("%s: %w", p.Key, err))
		}
		if err := s.api.UploadRichMenuImage(ctx, id, images[i].ContentType, images[i].Data); err != nil {
			return out, newError(ErrorUpstream, "upload_image_error", fmt.Errorf("%s: %w", p.Key, err))
		}
		s.logger.InfoContext(ctx, "menu created", "outcome", "OK", "key", p.Key, "name", p.Menu.Name, "rich_menu_id", id)
		ids[p.Key] = id
		out.Menus = append(out.Menus, DeployedMenu{Key: p.Key, RichMenuID: id, Alias: p.Alias, FittedPath: images[i].Path})
	}

	for i := range out.Menus {
		m := &out.Menus[i]
		if m.Alias == "" {
			continue
		}
		res, err := EnsureAlias(ctx, s.api, m.Alias, m.RichMenuID)
		if err != nil {
			return out, err
		}
		m.AliasResult = res
		s.logger.InfoContext(ctx, "alias bound", "outcome", "OK", "alias", m.Alias, "rich_menu_id", m.RichMenuID, "result", res)
	}

	if in.DefaultKey != "" {
		out.DefaultID = ids[in.DefaultKey]
		if err := s.api.SetDefaultRichMenu(ctx, out.DefaultID); err != nil {
			return out, newError(ErrorUpstream, "set_default_error", err)
		}
		current, err := s.api.DefaultRichMenu(ctx)
		if err != nil {
			return out, newError(ErrorUpstream, "get_default_error", err)
		}
		out.CurrentDefault = current
		if current == "" {
			s.logger.InfoContext(ctx, "default menu", "current", "none")
		} else {
			s.logger.InfoContext(ctx, "default menu", "outcome", "OK", "current", current)
		}
	}

	if in.DeleteOthers {
		if err := s.prune(ctx, &out); err != nil {
			return out, err
		}
	}
	return out, nil
}

// prune removes aliases outside the current alias set, then menus outside the
// set created by this run.
func (s *DeployService) prune(ctx context.Context, out *DeployOutput) error {
	keepAlias := make(map[string]bool, len(out.Menus))
	keepMenu := make(map[string]bool, len(out.Menus))
	for _, m := range out.Menus {
		keepMenu[m.RichMenuID] = true
		if m.Alias != "" {
			keepAlias[m.Alias] = true
		}
	}

	aliases, err := s.api.ListAliases(ctx)
	if err != nil {
		return newError(ErrorUpstream, "list_aliases_error", err)
	}
	for _, a := range aliases {
		if keepAlias[a.AliasID] {
			continue
		}
		if err := s.api.DeleteAlias(ctx, a.AliasID); err != nil {
			return newError(ErrorUpstream, "delete_alias_error", fmt.Errorf("%s: %w", a.AliasID, err))
		}
		out.DeletedAliases = append(out.DeletedAliases, a.AliasID)
	}

	menus, err := s.api.ListRichMenus(ctx)
	if err != nil {
		return newError(ErrorUpstream, "list_menus_error", err)
	}
	for _, m := range menus {
		if keepMenu[m.RichMenuID] {
			continue
		}
		if err := s.api.DeleteRichMenu(ctx, m.RichMenuID); err != nil {
			return newError(ErrorUpstream, "delete_menu_error", fmt.Errorf("%s: %w", m.RichMenuID, err))
		}
		out.DeletedMenus = append(out.DeletedMenus, m.RichMenuID)
	}
	s.logger.InfoContext(ctx, "pruned", "outcome", "OK",
		"aliases", len(out.DeletedAliases), "menus", len(out.DeletedMenus))
	return nil
}

func validatePlans(in DeployInput) error {
	if len(in.Plans) == 0 {
		return newError(ErrorInvalidInput, "no_menus", nil)
	}
	keys := make(map[string]bool, len(in.Plans))
	aliases := make(map[string]bool, len(in.Plans))
	for _, p := range in.Plans {
		if strings.TrimSpace(p.Key) == "" || keys[p.Key] {
			return newError(ErrorInvalidInput, "menu_key_invalid", fmt.Errorf("key %q", p.Key))
		}
		keys[p.Key] = true
		if p.Alias != "" {
			if aliases[p.Alias] {
				return newError(ErrorInvalidInput, "alias_duplicate", fmt.Errorf("alias %q", p.Alias))
			}
			aliases[p.Alias] = true
		}
		if strings.TrimSpace(p.ImagePath) == "" {
			return newError(ErrorInvalidInput, "image_path_required", fmt.Errorf("key %q", p.Key))
		}
		if err := ValidateMenu(p.Menu); err != nil {
			return newError(ErrorInvalidInput, "menu_invalid", fmt.Errorf("%s: %w", p.Key, err))
		}
	}
	if in.DefaultKey != "" && !keys[in.DefaultKey] {
		return newError(ErrorInvalidInput, "unknown_default_key", fmt.Errorf("key %q", in.DefaultKey))
	}
	return nil
}
