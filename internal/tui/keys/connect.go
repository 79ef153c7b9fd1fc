package keys

import "github.com/charmbracelet/bubbles/key"

// ConnectKeys are the session console actions
type ConnectKeys struct {
	CommonKeys
	ScrollKeys
	Provision    key.Binding
	Revision     key.Binding
	Extract      key.Binding
	Write        key.Binding
	Verify       key.Binding
	Barcode      key.Binding
	Completeness key.Binding
	BoxSerial    key.Binding
	Save         key.Binding
	Clear        key.Binding
}

func NewConnectKeys() ConnectKeys {
	return ConnectKeys{
		CommonKeys: NewCommonKeys(),
		ScrollKeys: NewScrollKeys(),
		Provision: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "auto provision"),
		),
		Revision: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "revinfo"),
		),
		Extract: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "extract serial"),
		),
		Write: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "write config"),
		),
		Verify: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "verify config"),
		),
		Barcode: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "validate barcode"),
		),
		Completeness: key.NewBinding(
			key.WithKeys("k"),
			key.WithHelp("k", "check all read"),
		),
		BoxSerial: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "box serial"),
		),
		Save: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "save log"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear"),
		),
	}
}

func (k ConnectKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Provision, k.Barcode, k.BoxSerial, k.Save, k.Help, k.Quit}
}

func (k ConnectKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Provision, k.Revision, k.Extract, k.Write, k.Verify},
		{k.Barcode, k.Completeness, k.BoxSerial},
		{k.Save, k.Clear, k.GotoTop, k.GotoBottom},
		{k.Up, k.Down, k.Help, k.Quit},
	}
}
