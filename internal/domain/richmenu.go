package domain

// Fixed rich menu canvas (large size).
const (
	MenuWidth  = 2500
	MenuHeight = 1686
)

type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Action types understood by the platform for menu areas.
const (
	ActionURI            = "uri"
	ActionPostback       = "postback"
	ActionMessage        = "message"
	ActionRichMenuSwitch = "richmenuswitch"
)

// Action is the tap behaviour of an area. Only the fields relevant to Type are
// serialized.
type Action struct {
	Type            string `json:"type"`
	Label           string `json:"label,omitempty"`
	URI             string `json:"uri,omitempty"`
	Data            string `json:"data,omitempty"`
	Text            string `json:"text,omitempty"`
	DisplayText     string `json:"displayText,omitempty"`
	RichMenuAliasID string `json:"richMenuAliasId,omitempty"`
}

type Area struct {
	Bounds Bounds `json:"bounds"`
	Action Action `json:"action"`
}

// RichMenu is a menu definition as sent to the create endpoint.
type RichMenu struct {
	Size        Size   `json:"size"`
	Selected    bool   `json:"selected"`
	Name        string `json:"name"`
	ChatBarText string `json:"chatBarText"`
	Areas       []Area `json:"areas"`
}

// RichMenuSummary is a menu as returned by the list endpoint.
type RichMenuSummary struct {
	RichMenuID  string `json:"richMenuId"`
	Name        string `json:"name"`
	ChatBarText string `json:"chatBarText"`
	Selected    bool   `json:"selected"`
}

// Alias binds a stable name to a rich menu ID.
type Alias struct {
	AliasID    string `json:"richMenuAliasId"`
	RichMenuID string `json:"richMenuId"`
}
