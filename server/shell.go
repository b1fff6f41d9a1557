package server

import "strings"

// Section is one pane of the dashboard.
type Section string

const (
	SectionOverview     Section = "overview"
	SectionAgents       Section = "agents"
	SectionTransactions Section = "transactions"
	SectionSettings     Section = "settings"
)

// Sections lists the dashboard panes in navigation order.
var Sections = []Section{SectionOverview, SectionAgents, SectionTransactions, SectionSettings}

// ParseSection maps a path segment to a section. Unknown names fall back
// to the overview.
func ParseSection(name string) Section {
	candidate := Section(strings.ToLower(strings.TrimSpace(name)))
	for _, s := range Sections {
		if s == candidate {
			return s
		}
	}
	return SectionOverview
}

func (s Section) Title() string {
	switch s {
	case SectionAgents:
		return "Agents"
	case SectionTransactions:
		return "Transactions"
	case SectionSettings:
		return "Settings"
	}
	return "Overview"
}

func (s Section) Path() string {
	return RouteDashboard + "/" + string(s)
}

// Shell is the dashboard frame: the active section and whether the mobile
// menu is open.
type Shell struct {
	Active   Section
	MenuOpen bool
}

// Navigate switches section. Navigating always closes the menu.
func (sh Shell) Navigate(to Section) Shell {
	return Shell{Active: to}
}

func (sh Shell) ToggleMenu() Shell {
	sh.MenuOpen = !sh.MenuOpen
	return sh
}

// Href is the URL that renders this shell state.
func (sh Shell) Href() string {
	href := sh.Active.Path()
	if sh.MenuOpen {
		href += "?menu=open"
	}
	return href
}

// NavLink is one entry of the dashboard navigation.
type NavLink struct {
	Section Section
	Title   string
	Href    string
	Active  bool
}

func (sh Shell) Links() []NavLink {
	links := make([]NavLink, 0, len(Sections))
	for _, s := range Sections {
		links = append(links, NavLink{
			Section: s,
			Title:   s.Title(),
			Href:    sh.Navigate(s).Href(),
			Active:  s == sh.Active,
		})
	}
	return links
}
