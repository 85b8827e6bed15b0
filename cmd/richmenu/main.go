package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"

	"lineops/internal/config"
	"lineops/internal/integrations/line"
	"lineops/internal/integrations/paramstore"
	"lineops/internal/usecase"
)

func main() {
	layout := flag.String("layout", usecase.LayoutLinks, "menu layout: links|tabs")
	image := flag.String("image", "syh/line/richmenu_comp.jpg", "image for the links layout")
	imageA := flag.String("image-a", "richmenu/line/menuA.png", "image for menu A (tabs layout)")
	imageB := flag.String("image-b", "richmenu/line/menuB.png", "image for menu B (tabs layout)")
	name := flag.String("name", "劇團資訊", "menu name (links layout)")
	chatbar := flag.String("chatbar", "劇團資訊", "chat bar label")
	alias := flag.String("alias", "", "alias to bind to the links menu")
	home := flag.String("home", "https://syh8316.github.io/syh8316/syh/home.html", "home page URL")
	fb := flag.String("fb", "https://www.facebook.com/share/1AQhTBMEyT/?mibextid=wwXIfr", "Facebook URL")
	ig := flag.String("ig", "https://www.instagram.com/syh.ot_1994?utm_source=qr", "Instagram URL")
	threads := flag.String("threads", "https://www.threads.net/@syh.ot_1994", "Threads URL")
	fit := flag.Bool("fit", true, "fit images to the canvas; with -fit=false images must already be 2500x1686")
	setDefault := flag.String("set-default", "auto", "menu to make the default for all users: auto|none|<key>")
	deleteOthers := flag.Bool("delete-others", false, "delete aliases and menus not created by this run")
	workDir := flag.String("work-dir", os.TempDir(), "directory for fitted images")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Configuration (read only here) ----
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Error("failed to load .env", "err", err)
		os.Exit(1)
	}
	cfg, err := config.LoadDeploy(nil)
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	var (
		plans      []usecase.MenuPlan
		defaultKey string
	)
	switch *layout {
	case usecase.LayoutLinks:
		plans, defaultKey, err = usecase.LinksLayout(usecase.LinksOptions{
			Name:         *name,
			ChatBar:      *chatbar,
			Image:        *image,
			Alias:        *alias,
			HomeURL:      *home,
			FacebookURL:  *fb,
			InstagramURL: *ig,
			ThreadsURL:   *threads,
		})
	case usecase.LayoutTabs:
		plans, defaultKey, err = usecase.TabsLayout(usecase.TabsOptions{ChatBar: *chatbar, ImageA: *imageA, ImageB: *imageB})
	default:
		err = fmt.Errorf("unknown layout %q", *layout)
	}
	if err != nil {
		fail("invalid layout", err)
	}
	switch *setDefault {
	case "auto":
	case "none":
		defaultKey = ""
	default:
		defaultKey = *setDefault
	}

	// ---- Clients ----
	var tokens usecase.TokenSource
	if cfg.Token == "" && cfg.TokenParam != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			fail("failed to load AWS config", err)
		}
		ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
		if err != nil {
			fail("failed to create SSM client", err)
		}
		tokens = ssmClient
	}
	token, err := usecase.ResolveToken(ctx, cfg.Token, cfg.TokenParam, tokens)
	if err != nil {
		fail("channel access token unavailable", err)
	}
	lineClient, err := line.NewClient(token,
		line.WithBaseURL(cfg.BaseURL),
		line.WithDataBaseURL(cfg.DataBaseURL),
		line.WithLogger(logger),
	)
	if err != nil {
		fail("failed to create LINE client", err)
	}

	// ---- Deploy ----
	svc, err := usecase.NewDeployService(lineClient, logger)
	if err != nil {
		fail("failed to create deploy service", err)
	}
	out, err := svc.Deploy(ctx, usecase.DeployInput{
		Plans:        plans,
		DefaultKey:   defaultKey,
		DeleteOthers: *deleteOthers,
		Fit:          *fit,
		WorkDir:      *workDir,
	})
	if err != nil {
		fail("deploy failed", err)
	}

	for _, m := range out.Menus {
		logger.Info("deployed", "outcome", "OK", "key", m.Key, "rich_menu_id", m.RichMenuID, "alias", m.Alias)
	}
	logger.Info("done", "outcome", "OK", "layout", *layout, "menus", len(out.Menus),
		"default", out.CurrentDefault, "deleted_aliases", len(out.DeletedAliases), "deleted_menus", len(out.DeletedMenus))
}

func fail(msg string, err error) {
	attrs := []any{"outcome", "ERROR", "err", err}
	if code := usecase.CodeOf(err); code != "" {
		attrs = append(attrs, "code", code)
	}
	if status, ok := usecase.UpstreamStatusCode(err); ok {
		attrs = append(attrs, "status", status, "body", usecase.UpstreamBody(err))
	}
	slog.Error(msg, attrs...)
	os.Exit(1)
}
