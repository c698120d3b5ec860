package schemas

// ElementRole classifies an interactable element in the page inventory.
type ElementRole string

const (
	RoleInput     ElementRole = "input"
	RoleTextarea  ElementRole = "textarea"
	RoleSelect    ElementRole = "select"
	RoleButton    ElementRole = "button"
	RoleLabel     ElementRole = "label"
	RoleLink      ElementRole = "link"
	RoleClickable ElementRole = "clickable"
)

// Element is a normalized description of a single interactable DOM node.
// XPath is derived from the node's position at extraction time; it is not
// stable across DOM mutations and must be re-derived after each snapshot.
type Element struct {
	Role           ElementRole       `json:"role"`
	Tag            string            `json:"tag"`
	ID             string            `json:"id,omitempty"`
	Name           string            `json:"name,omitempty"`
	Type           string            `json:"type,omitempty"`
	ClassList      []string          `json:"classList,omitempty"`
	Placeholder    string            `json:"placeholder,omitempty"`
	Text           string            `json:"text,omitempty"`
	XPath          string            `json:"xpath"`
	FormID         string            `json:"formId,omitempty"`
	AriaAttributes map[string]string `json:"ariaAttributes,omitempty"`
	Label          string            `json:"label,omitempty"`

	// Select-only fields. Options holds at most a bounded preview of the
	// visible options; OptionCount and HasMoreOptions always reflect the
	// true visible-option count.
	Options        []SelectOption `json:"options,omitempty"`
	OptionCount    int            `json:"optionCount,omitempty"`
	HasMoreOptions bool           `json:"hasMoreOptions,omitempty"`
}

// SelectOption is one entry of a native select's option list.
type SelectOption struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// Form groups the elements nested under a single <form>. FormID is the
// explicit id attribute when present, otherwise a deterministic hash of the
// form's structural signature, so unchanged markup re-extracts to the same id.
type Form struct {
	FormID  string    `json:"formId"`
	Action  string    `json:"action,omitempty"`
	Method  string    `json:"method,omitempty"`
	Inputs  []Element `json:"inputs"`
	Selects []Element `json:"selects"`
	Buttons []Element `json:"buttons"`
	Labels  []Element `json:"labels"`
}

// StandaloneElements collects interactable nodes that are not nested under
// any <form>.
type StandaloneElements struct {
	Inputs     []Element `json:"inputs"`
	Buttons    []Element `json:"buttons"`
	Selects    []Element `json:"selects"`
	Labels     []Element `json:"labels"`
	Links      []Element `json:"links"`
	Clickables []Element `json:"clickables"`
}

// PageInventory is the semantic element inventory for one DOM snapshot.
type PageInventory struct {
	URL        string             `json:"url,omitempty"`
	Title      string             `json:"title,omitempty"`
	Forms      []Form             `json:"forms"`
	Standalone StandaloneElements `json:"standalone"`
}

// FieldCount reports how many fillable fields (inputs and selects, in forms
// or standalone) the inventory contains.
func (p *PageInventory) FieldCount() int {
	n := len(p.Standalone.Inputs) + len(p.Standalone.Selects)
	for _, f := range p.Forms {
		n += len(f.Inputs) + len(f.Selects)
	}
	return n
}
