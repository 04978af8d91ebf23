package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Styling
var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#0a84ff")).
			Padding(0, 1)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#30d158")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#ff453a")).
			Padding(0, 1)
)

// Model defines the application state
type Model struct {
	mainMenu    list.Model
	assetView   table.Model
	caseList    list.Model
	caseDetail  Case
	inputField  textinput.Model
	spinner     spinner.Model
	client      *ApiClient
	currentView string
	message     string
	error       string
}

// item represents a list item
type item struct {
	title, desc string
}

// FilterValue implements list.Item interface
func (i item) FilterValue() string { return i.title }

// Title implements list.Item interface
func (i item) Title() string { return i.title }

// Description implements list.Item interface
func (i item) Description() string { return i.desc }

// Initialize the model
func initialModel() Model {
	// Initialize spinner
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	// Initialize main menu items
	items := []list.Item{
		item{title: "Asset Catalog", desc: "Browse assets, availability and leaked quantities"},
		item{title: "Liability Cases", desc: "Review and escalate outstanding cases"},
		item{title: "Exit", desc: "Exit the application"},
	}

	// Initialize main menu
	mainMenu := list.New(items, list.NewDefaultDelegate(), 0, 0)
	mainMenu.Title = "Tool Crib CLI"

	// Initialize asset table
	columns := []table.Column{
		{Title: "ID", Width: 10},
		{Title: "Name", Width: 24},
		{Title: "Zone", Width: 10},
		{Title: "Avail", Width: 7},
		{Title: "Leaked", Width: 7},
		{Title: "Condition", Width: 12},
	}
	assetTable := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	// Initialize case list view
	caseList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	caseList.Title = "Outstanding Cases"

	// Initialize text input for action notes
	ti := textinput.New()
	ti.Placeholder = "Notes for this action..."
	ti.CharLimit = 156
	ti.Width = 40

	return Model{
		mainMenu:    mainMenu,
		assetView:   assetTable,
		caseList:    caseList,
		spinner:     s,
		inputField:  ti,
		client:      NewApiClient(),
		currentView: "main",
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tea.EnterAltScreen)
}

// Update handles UI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			if m.currentView == "main" {
				selected, ok := m.mainMenu.SelectedItem().(item)
				if ok {
					switch selected.title {
					case "Exit":
						return m, tea.Quit
					case "Asset Catalog":
						m.currentView = "assets"
						return m, fetchAssets(m.client)
					case "Liability Cases":
						m.currentView = "cases"
						return m, fetchCases(m.client)
					}
				}
			} else if m.currentView == "cases" {
				if selected, ok := m.caseList.SelectedItem().(caseItem); ok {
					m.currentView = "case_detail"
					return m, fetchCaseDetail(m.client, selected.id)
				}
			} else if m.currentView == "case_detail" {
				m.currentView = "cases"
				return m, fetchCases(m.client)
			}
		case "esc":
			if m.currentView == "case_detail" {
				m.currentView = "cases"
				return m, fetchCases(m.client)
			} else if m.currentView != "main" {
				m.currentView = "main"
			}
		case "g":
			if m.currentView == "case_detail" {
				return m, applyAction(m.client, m.caseDetail.ID, CaseAction{Action: "grant_grace"})
			}
		case "m":
			if m.currentView == "case_detail" {
				return m, applyAction(m.client, m.caseDetail.ID, CaseAction{Action: "escalate_to_manager"})
			}
		case "h":
			if m.currentView == "case_detail" {
				return m, applyAction(m.client, m.caseDetail.ID, CaseAction{Action: "hr_escalate"})
			}
		case "s":
			if m.currentView == "case_detail" {
				return m, applyAction(m.client, m.caseDetail.ID, CaseAction{Action: "request_further_search"})
			}
		case "v":
			if m.currentView == "case_detail" {
				return m, applyAction(m.client, m.caseDetail.ID, CaseAction{
					Action: "verify", ConditionOnReturn: "Good",
				})
			}
		case "d":
			if m.currentView == "case_detail" {
				return m, applyAction(m.client, m.caseDetail.ID, CaseAction{
					Action: "verify", ConditionOnReturn: "Damaged",
				})
			}
		case "x":
			if m.currentView == "case_detail" {
				return m, applyAction(m.client, m.caseDetail.ID, CaseAction{Action: "cancel_case"})
			}
		}
	case assetsMsg:
		rows := make([]table.Row, len(msg.assets))
		for i, l := range msg.assets {
			rows[i] = table.Row{
				l.Asset.ID, l.Asset.Name, l.Asset.Zone,
				fmt.Sprintf("%d/%d", l.Asset.Available, l.Asset.Quantity),
				fmt.Sprintf("%d", l.LeakedQty),
				l.Asset.Condition,
			}
		}
		m.assetView.SetRows(rows)
		return m, nil
	case casesMsg:
		m.caseList.SetItems(convertCasesToItems(msg.cases))
		return m, nil
	case caseDetailMsg:
		m.caseDetail = msg.k
		m.error = ""
		return m, nil
	case errorMsg:
		m.error = msg.err
		return m, nil
	case confirmMsg:
		m.error = ""
		m.message = msg.message
		if m.currentView == "case_detail" {
			return m, fetchCaseDetail(m.client, m.caseDetail.ID)
		}
		return m, fetchCases(m.client)
	}

	var cmd tea.Cmd
	switch m.currentView {
	case "main":
		m.mainMenu, cmd = m.mainMenu.Update(msg)
	case "assets":
		m.assetView, cmd = m.assetView.Update(msg)
	case "cases":
		m.caseList, cmd = m.caseList.Update(msg)
	}

	return m, cmd
}

// View renders the UI
func (m Model) View() string {
	switch m.currentView {
	case "main":
		return docStyle.Render(m.mainMenu.View())
	case "assets":
		return docStyle.Render(titleStyle.Render("Asset Catalog") + "\n\n" + m.assetView.View() +
			"\n\nPress 'esc' to go back")
	case "cases":
		help := "\nPress 'enter' to view details, 'esc' to go back\n"
		if m.error != "" {
			help += errorStyle.Render(m.error) + "\n"
		}
		return docStyle.Render(titleStyle.Render("Liability Cases") + "\n\n" + m.caseList.View() + help)
	case "case_detail":
		return docStyle.Render(caseDetailView(m.caseDetail, m.message, m.error))
	default:
		return "Loading..."
	}
}

// Custom message types for the tea.Model
type assetsMsg struct {
	assets []AssetListing
}

type casesMsg struct {
	cases []Case
}

type caseDetailMsg struct {
	k Case
}

type errorMsg struct {
	err string
}

type confirmMsg struct {
	message string
}

// caseItem represents a case in the list
type caseItem struct {
	id    string
	title string
	desc  string
}

func (i caseItem) Title() string       { return i.title }
func (i caseItem) Description() string { return i.desc }
func (i caseItem) FilterValue() string { return i.title }

// fetchAssets retrieves the catalog from the API
func fetchAssets(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		assets, err := client.GetAssets("")
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching assets: %v", err)}
		}
		return assetsMsg{assets: assets}
	}
}

// fetchCases retrieves cases from the API
func fetchCases(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		cases, err := client.GetCases("")
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching cases: %v", err)}
		}
		return casesMsg{cases: cases}
	}
}

// fetchCaseDetail retrieves details for a specific case
func fetchCaseDetail(client *ApiClient, id string) tea.Cmd {
	return func() tea.Msg {
		k, err := client.GetCase(id)
		if err != nil || k == nil {
			return errorMsg{err: fmt.Sprintf("Error fetching case details: %v", err)}
		}
		return caseDetailMsg{k: *k}
	}
}

// applyAction runs one escalation transition on a case
func applyAction(client *ApiClient, id string, action CaseAction) tea.Cmd {
	return func() tea.Msg {
		if _, err := client.ApplyCaseAction(id, action); err != nil {
			return errorMsg{err: fmt.Sprintf("Error applying %s: %v", action.Action, err)}
		}
		return confirmMsg{message: fmt.Sprintf("Applied %s", action.Action)}
	}
}

// convertCasesToItems converts API cases to list items
func convertCasesToItems(cases []Case) []list.Item {
	items := make([]list.Item, len(cases))
	for i, k := range cases {
		items[i] = caseItem{
			id:    k.ID,
			title: fmt.Sprintf("%s - %s", k.ID, k.ToolID),
			desc: fmt.Sprintf("%d unit(s) - %s/%s - Custodian: %s",
				k.Quantity, k.Stage, k.Status, k.StaffName),
		}
	}
	return items
}

// caseDetailView creates a detailed view of a case
func caseDetailView(k Case, message, errText string) string {
	view := titleStyle.Render(fmt.Sprintf("Case %s", k.ID)) + "\n\n"
	view += fmt.Sprintf("Tool: %s\n", k.ToolID)
	view += fmt.Sprintf("Custodian: %s (%s)\n", k.StaffName, k.StaffID)
	view += fmt.Sprintf("Quantity: %d\n", k.Quantity)
	view += fmt.Sprintf("Stage: %s\n", k.Stage)
	view += fmt.Sprintf("Status: %s\n", k.Status)
	view += fmt.Sprintf("Value: %.2f\n", k.MonetaryValue)
	if k.GraceExpiry != nil {
		view += fmt.Sprintf("Grace expires: %s\n", k.GraceExpiry.Format(time.RFC1123))
	}
	if k.Resolution != "" {
		view += fmt.Sprintf("Resolution: %s\n", k.Resolution)
	}
	if k.Notes != "" {
		view += fmt.Sprintf("Notes: %s\n", k.Notes)
	}

	if len(k.History) > 0 {
		view += "\nHistory:\n"
		for i, h := range k.History {
			view += fmt.Sprintf("%d. [%s] %s by %s at %s\n",
				i+1, h.Stage, h.Action, h.Actor, h.Timestamp.Format(time.RFC1123))
			if h.Notes != "" {
				view += fmt.Sprintf("   Notes: %s\n", h.Notes)
			}
		}
	}

	view += "\n" + infoStyle.Render("Actions:") + "\n"
	view += "g grace  m manager  h HR  s search  v verified good  d verified damaged  x cancel\n"
	if message != "" {
		view += successStyle.Render(message) + "\n"
	}
	if errText != "" {
		view += errorStyle.Render(errText) + "\n"
	}
	view += "Press 'esc' to go back to the list"

	return view
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running program: %v", err)
		os.Exit(1)
	}
}
