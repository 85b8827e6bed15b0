package usecase

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"lineops/internal/domain"
)

const (
	LayoutLinks = "links"
	LayoutTabs  = "tabs"

	tabHeight     = 250
	maxChatBarLen = 14
)

// MenuPlan is one menu to deploy: the definition, the image to upload and the
// alias to bind (empty for none). Key names the plan for -set-default.
type MenuPlan struct {
	Key       string
	Alias     string
	ImagePath string
	Menu      domain.RichMenu
}

// LinksOptions configures the single-menu link layout.
type LinksOptions struct {
	Name         string
	ChatBar      string
	Image        string
	Alias        string
	HomeURL      string
	FacebookURL  string
	InstagramURL string
	ThreadsURL   string
}

// TabsOptions configures the two-menu tab layout.
type TabsOptions struct {
	ChatBar string
	ImageA  string
	ImageB  string
}

// thirds splits the menu width into three columns of 833/834/833.
var thirds = [3]struct{ x, w int }{{0, 833}, {833, 834}, {1667, 833}}

func canvas() domain.Size {
	return domain.Size{Width: domain.MenuWidth, Height: domain.MenuHeight}
}

// LinksLayout is a banner linking to the home page above a row of three social
// links. The menu opens expanded.
func LinksLayout(o LinksOptions) ([]MenuPlan, string, error) {
	urls := []string{o.HomeURL, o.FacebookURL, o.InstagramURL, o.ThreadsURL}
	for _, u := range urls {
		if strings.TrimSpace(u) == "" {
			return nil, "", newError(ErrorInvalidInput, "link_url_required", nil)
		}
	}
	half := domain.MenuHeight / 2
	areas := []domain.Area{{
		Bounds: domain.Bounds{X: 0, Y: 0, Width: domain.MenuWidth, Height: half},
		Action: domain.Action{Type: domain.ActionURI, Label: "新義和歌劇團", URI: o.HomeURL},
	}}
	labels := []string{"FB", "IG", "Threads"}
	for i, col := range thirds {
		areas = append(areas, domain.Area{
			Bounds: domain.Bounds{X: col.x, Y: half, Width: col.w, Height: half},
			Action: domain.Action{Type: domain.ActionURI, Label: labels[i], URI: urls[i+1]},
		})
	}
	plan := MenuPlan{
		Key:       "main",
		Alias:     o.Alias,
		ImagePath: o.Image,
		Menu: domain.RichMenu{
			Size:        canvas(),
			Selected:    true,
			Name:        o.Name,
			ChatBarText: o.ChatBar,
			Areas:       areas,
		},
	}
	return []MenuPlan{plan}, plan.Key, nil
}

// TabsLayout builds two menus sharing a tab strip at the top: the first two
// tabs switch between the menus through their aliases, the third posts a
// placeholder message.
func TabsLayout(o TabsOptions) ([]MenuPlan, string, error) {
	switchTo := []struct{ alias, data string }{{"menu-a", "goto=menuA"}, {"menu-b", "goto=menuB"}}
	areas := make([]domain.Area, 0, len(thirds))
	for i, col := range thirds {
		b := domain.Bounds{X: col.x, Y: 0, Width: col.w, Height: tabHeight}
		if i < len(switchTo) {
			areas = append(areas, domain.Area{Bounds: b, Action: domain.Action{
				Type:            domain.ActionRichMenuSwitch,
				RichMenuAliasID: switchTo[i].alias,
				Data:            switchTo[i].data,
			}})
			continue
		}
		areas = append(areas, domain.Area{Bounds: b, Action: domain.Action{Type: domain.ActionMessage, Text: "選單 C（尚未製作）"}})
	}

	menu := func(name string) domain.RichMenu {
		return domain.RichMenu{Size: canvas(), Name: name, ChatBarText: o.ChatBar, Areas: areas}
	}
	plans := []MenuPlan{
		{Key: "menu-a", Alias: "menu-a", ImagePath: o.ImageA, Menu: menu("選單A")},
		{Key: "menu-b", Alias: "menu-b", ImagePath: o.ImageB, Menu: menu("選單B")},
	}
	return plans, "menu-a", nil
}

// ValidateMenu checks that every area lies inside the canvas and that each
// action carries the field its type requires.
func ValidateMenu(m domain.RichMenu) error {
	if m.Size.Width != domain.MenuWidth || m.Size.Height != domain.MenuHeight {
		return fmt.Errorf("size %dx%d", m.Size.Width, m.Size.Height)
	}
	if strings.TrimSpace(m.Name) == "" || strings.TrimSpace(m.ChatBarText) == "" {
		return errors.New("name and chat bar text are required")
	}
	if n := utf8.RuneCountInString(m.ChatBarText); n > maxChatBarLen {
		return fmt.Errorf("chat bar text has %d characters, limit is %d", n, maxChatBarLen)
	}
	for i, a := range m.Areas {
		b := a.Bounds
		if b.X < 0 || b.Y < 0 || b.Width <= 0 || b.Height <= 0 ||
			b.X+b.Width > m.Size.Width || b.Y+b.Height > m.Size.Height {
			return fmt.Errorf("area %d out of bounds", i)
		}
		var missing bool
		switch a.Action.Type {
		case domain.ActionURI:
			missing = a.Action.URI == ""
		case domain.ActionPostback:
			missing = a.Action.Data == ""
		case domain.ActionMessage:
			missing = a.Action.Text == ""
		case domain.ActionRichMenuSwitch:
			missing = a.Action.RichMenuAliasID == "" || a.Action.Data == ""
		default:
			return fmt.Errorf("area %d: unknown action type %q", i, a.Action.Type)
		}
		if missing {
			return fmt.Errorf("area %d: incomplete %s action", i, a.Action.Type)
		}
	}
	return nil
}
