// internal/ui/console/model.go

// Package console is the interactive browser behind `finopsctl browse`. It
// renders one page of a view at a time and drives the view's controller
// from the keyboard.
package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/ammerola/finops-console/internal/core/dataview"
	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
	"github.com/ammerola/finops-console/internal/pkg/config"
	"github.com/ammerola/finops-console/internal/pkg/logger"
	"github.com/ammerola/finops-console/internal/ui/disclosure"
)

// Menu names. The name of the open menu is stored under
// ports.PrefLastOpenSubmenu and reopened on the next launch.
const (
	MenuSort   = "sort"
	MenuFilter = "filter"
)

const (
	defaultAnalyzeDelay = 1500 * time.Millisecond
	flashFor            = 2 * time.Second
	maxColumnWidth      = 36
)

// GridSource opens a live controller over a view
type GridSource interface {
	Grid(ctx context.Context, view domain.View, params ports.ListParams) (dataview.Grid, error)
}

type action int

const (
	actionResolve action = iota + 1
	actionDismiss
)

func (a action) past() string {
	if a == actionDismiss {
		return "dismissed"
	}
	return "resolved"
}

func (a action) title() string {
	if a == actionDismiss {
		return "Dismissed"
	}
	return "Resolved"
}

type (
	analyzeDoneMsg struct {
		id     string
		action action
	}
	clearStatusMsg struct{ seq int }
)

type menu struct {
	d       *disclosure.Disclosure
	trigger *disclosure.Ref
	panel   *disclosure.Ref
	key     string
}

type menuItem struct {
	field string
	value string
	label string
}

// Model is the browse screen
type Model struct {
	ctx    context.Context
	cfg    config.ConsoleConfig
	views  GridSource
	recs   ports.RecommendationService
	prefs  ports.PreferenceStore
	copy   func(string) error
	logger *slog.Logger

	view  domain.View
	grid  dataview.Grid
	page  dataview.TablePage
	table table.Model

	search     textinput.Model
	searching  bool
	prevSearch string

	spinner   spinner.Model
	analyzing string
	delay     time.Duration

	bus        *disclosure.Bus
	menus      *disclosure.Registry
	sort       *menu
	filter     *menu
	menuCursor int

	status    string
	statusErr bool
	statusSeq int
}

// Option configures a Model
type Option func(*Model)

// WithClipboard replaces the system clipboard
func WithClipboard(fn func(string) error) Option {
	return func(m *Model) { m.copy = fn }
}

// WithPreferences sets where the last open menu is remembered
func WithPreferences(p ports.PreferenceStore) Option {
	return func(m *Model) { m.prefs = p }
}

// WithLogger sets the logger. The screen owns the terminal, so the logger
// should not write to stdout.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// New builds the browse screen for view
func New(ctx context.Context, cfg config.ConsoleConfig, views GridSource, recs ports.RecommendationService, view domain.View, opts ...Option) (*Model, error) {
	m := &Model{
		ctx:    ctx,
		cfg:    cfg,
		views:  views,
		recs:   recs,
		copy:   clipboard.WriteAll,
		logger: logger.Discard(),
		view:   view,
		delay:  defaultAnalyzeDelay,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(slog.String("component", "console"))

	if d, err := time.ParseDuration(cfg.AnalyzeDelay); err == nil && d >= 0 {
		m.delay = d
	}

	grid, err := views.Grid(ctx, view, ports.ListParams{PageSize: cfg.PageSize})
	if err != nil {
		return nil, fmt.Errorf("failed to open view: %w", err)
	}
	m.grid = grid

	ti := textinput.New()
	ti.Placeholder = "search"
	ti.Prompt = "/ "
	ti.CharLimit = 128
	ti.Width = 40
	m.search = ti

	s := spinner.New()
	s.Spinner = spinner.Dot
	m.spinner = s

	m.table = table.New(table.WithFocused(true), table.WithStyles(tableStyles()))

	m.bus = disclosure.NewBus()
	m.menus = disclosure.NewRegistry(m.bus)
	m.sort = m.newMenu(MenuSort, cfg.Keys.SortMenu)
	m.filter = m.newMenu(MenuFilter, cfg.Keys.FilterMenu)
	m.menus.OnChange(m.menuChanged)

	m.sync()
	m.restoreMenu()
	return m, nil
}

func (m *Model) newMenu(name, key string) *menu {
	trigger := disclosure.NewRef(name + "-trigger")
	panel := disclosure.NewRef(name + "-panel")
	return &menu{
		d:       m.menus.New(name, trigger, panel),
		trigger: trigger,
		panel:   panel,
		key:     key,
	}
}

// Run shows the screen until the user quits or ctx is cancelled
func Run(ctx context.Context, m *Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.search.Width = max(msg.Width-10, 10)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case spinner.TickMsg:
		if m.analyzing == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case analyzeDoneMsg:
		return m, m.finishAnalysis(msg)
	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
			m.statusErr = false
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if m.searching {
		return m.updateSearch(key, msg)
	}
	if open := m.openMenu(); open != nil {
		if handled, cmd := m.updateMenu(open, key); handled {
			return m, cmd
		}
	}
	return m.updateList(key)
}

func (m *Model) updateSearch(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case "enter":
		m.searching = false
		m.search.Blur()
		return m, nil
	case m.cfg.Keys.Cancel:
		m.searching = false
		m.search.Blur()
		m.search.SetValue(m.prevSearch)
		m.grid.SetSearch(m.prevSearch)
		m.sync()
		return m, nil
	default:
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.grid.SetSearch(m.search.Value())
		m.sync()
		return m, cmd
	}
}

func (m *Model) updateList(key string) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Quit:
		return m, tea.Quit
	case m.cfg.Keys.Down, "down":
		m.table.MoveDown(1)
	case m.cfg.Keys.Up, "up":
		m.table.MoveUp(1)
	case m.cfg.Keys.NextPage, "right":
		m.grid.NextPage()
		m.sync()
	case m.cfg.Keys.PrevPage, "left":
		m.grid.PrevPage()
		m.sync()
	case m.cfg.Keys.Search:
		m.searching = true
		m.prevSearch = m.grid.Filters().Search
		m.search.SetValue(m.prevSearch)
		m.search.CursorEnd()
		return m, m.search.Focus()
	case m.cfg.Keys.SortMenu:
		m.toggleMenu(m.sort)
	case m.cfg.Keys.FilterMenu:
		m.toggleMenu(m.filter)
	case m.cfg.Keys.Clear:
		m.grid.ClearFilters()
		m.search.SetValue("")
		m.sync()
		return m, m.flash("Filters cleared")
	case m.cfg.Keys.Copy:
		return m, m.copySelected()
	case m.cfg.Keys.Resolve:
		return m, m.startAnalysis(actionResolve)
	case m.cfg.Keys.Dismiss:
		return m, m.startAnalysis(actionDismiss)
	case "tab":
		m.switchView(1)
	case "shift+tab":
		m.switchView(-1)
	case "ctrl+r":
		m.grid.Refresh()
		if err := m.grid.Reload(m.ctx); err != nil {
			m.setError(fmt.Sprintf("reload failed: %v", err))
		}
		m.sync()
	}
	return m, nil
}

// toggleMenu treats the key press as a click on the menu's trigger, so any
// other open menu is dismissed first
func (m *Model) toggleMenu(mn *menu) {
	m.bus.Publish(disclosure.Event{Target: mn.trigger})
	mn.d.Toggle()
}

func (m *Model) openMenu() *menu {
	for _, mn := range []*menu{m.sort, m.filter} {
		if mn.d.IsOpen() {
			return mn
		}
	}
	return nil
}

// updateMenu routes a key to the open menu. Keys the menu does not use count
// as an interaction outside it: the menu closes and the key falls through.
func (m *Model) updateMenu(mn *menu, key string) (bool, tea.Cmd) {
	items := m.menuItems(mn)
	switch key {
	case m.cfg.Keys.Cancel:
		m.bus.Publish(disclosure.Event{Escape: true})
		return true, nil
	case m.cfg.Keys.Up, "up":
		m.bus.Publish(disclosure.Event{Target: mn.panel})
		if m.menuCursor > 0 {
			m.menuCursor--
		}
		return true, nil
	case m.cfg.Keys.Down, "down":
		m.bus.Publish(disclosure.Event{Target: mn.panel})
		if m.menuCursor < len(items)-1 {
			m.menuCursor++
		}
		return true, nil
	case "enter", " ":
		m.bus.Publish(disclosure.Event{Target: mn.panel})
		if m.menuCursor < len(items) {
			m.applyMenuItem(mn, items[m.menuCursor])
		}
		return true, nil
	case m.sort.key:
		m.toggleMenu(m.sort)
		return true, nil
	case m.filter.key:
		m.toggleMenu(m.filter)
		return true, nil
	}
	m.bus.Publish(disclosure.Event{})
	return false, nil
}

func (m *Model) menuItems(mn *menu) []menuItem {
	var items []menuItem
	if mn == m.sort {
		current := m.grid.SortState()
		for _, c := range m.grid.Columns() {
			label := c.Name
			if current != nil && current.Field == c.Name {
				label += " " + arrow(current.Direction)
			}
			items = append(items, menuItem{field: c.Name, label: label})
		}
		return items
	}

	selections := m.grid.Filters().Selections
	for _, field := range m.grid.Selectable() {
		for _, v := range m.grid.FacetValues(field) {
			mark := "[ ]"
			if slices.Contains(selections[field], v) {
				mark = "[x]"
			}
			items = append(items, menuItem{
				field: field,
				value: v,
				label: fmt.Sprintf("%s %s: %s", mark, field, v),
			})
		}
	}
	return items
}

func (m *Model) applyMenuItem(mn *menu, item menuItem) {
	if mn == m.sort {
		m.grid.SetSort(item.field)
		mn.d.Close()
		m.sync()
		return
	}
	m.grid.ToggleSelection(item.field, item.value)
	m.sync()
}

func (m *Model) menuChanged(d *disclosure.Disclosure, open bool) {
	value := ""
	if open {
		m.menuCursor = 0
		value = d.Name()
	} else if m.menus.OpenCount() > 0 {
		return
	}
	if m.prefs == nil {
		return
	}
	if err := m.prefs.Set(m.ctx, ports.PrefLastOpenSubmenu, value); err != nil {
		m.logger.Warn("failed to save open menu", slog.String("error", err.Error()))
	}
}

func (m *Model) restoreMenu() {
	if m.prefs == nil {
		return
	}
	name, err := m.prefs.Get(m.ctx, ports.PrefLastOpenSubmenu)
	if err != nil {
		if !errors.Is(err, ports.ErrPreferenceNotSet) {
			m.logger.Warn("failed to read open menu", slog.String("error", err.Error()))
		}
		return
	}
	switch name {
	case MenuSort:
		m.sort.d.Open()
	case MenuFilter:
		m.filter.d.Open()
	}
}

func (m *Model) switchView(step int) {
	i := slices.Index(domain.Views, m.view)
	next := domain.Views[(i+step+len(domain.Views))%len(domain.Views)]

	grid, err := m.views.Grid(m.ctx, next, ports.ListParams{PageSize: m.cfg.PageSize})
	if err != nil {
		m.setError(fmt.Sprintf("failed to open %s: %v", next, err))
		return
	}
	m.menus.Escape()
	m.view = next
	m.grid = grid
	m.search.SetValue("")
	m.table.SetCursor(0)
	m.sync()
}

func (m *Model) selectedKey() (string, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.page.Keys) {
		return "", false
	}
	return m.page.Keys[i], true
}

func (m *Model) copySelected() tea.Cmd {
	id, ok := m.selectedKey()
	if !ok {
		m.setError("Nothing to copy")
		return nil
	}
	if err := m.copy(id); err != nil {
		m.setError(fmt.Sprintf("copy failed: %v", err))
		return nil
	}
	return m.flash("Copied " + id)
}

func (m *Model) startAnalysis(a action) tea.Cmd {
	if m.view != domain.ViewRecommendations {
		m.setError("Only recommendations can be " + a.past())
		return nil
	}
	if m.analyzing != "" {
		return nil
	}
	id, ok := m.selectedKey()
	if !ok {
		m.setError("No recommendation selected")
		return nil
	}
	m.analyzing = id
	m.setStatus("Analyzing " + id)
	delay := m.delay
	return tea.Batch(m.spinner.Tick, tea.Tick(delay, func(time.Time) tea.Msg {
		return analyzeDoneMsg{id: id, action: a}
	}))
}

func (m *Model) finishAnalysis(msg analyzeDoneMsg) tea.Cmd {
	m.analyzing = ""

	var err error
	switch msg.action {
	case actionResolve:
		_, err = m.recs.Resolve(m.ctx, msg.id)
	case actionDismiss:
		_, err = m.recs.Dismiss(m.ctx, msg.id)
	}

	switch {
	case errors.Is(err, domain.ErrInvalidStatus):
		m.setError(fmt.Sprintf("%s cannot be %s from its current status", msg.id, msg.action.past()))
		return nil
	case errors.Is(err, domain.ErrNotFound):
		m.setError(fmt.Sprintf("%s no longer exists", msg.id))
		return nil
	case err != nil:
		m.logger.Error("failed to update recommendation",
			slog.String("id", msg.id),
			slog.String("error", err.Error()))
		m.setError(fmt.Sprintf("update failed: %v", err))
		return nil
	}

	if err := m.grid.Reload(m.ctx); err != nil {
		m.setError(fmt.Sprintf("reload failed: %v", err))
		return nil
	}
	m.sync()
	return m.flash(msg.action.title() + " " + msg.id)
}

func (m *Model) setStatus(s string) {
	m.statusSeq++
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(s string) {
	m.statusSeq++
	m.status = s
	m.statusErr = true
}

// flash shows s until the next status change or flashFor elapses
func (m *Model) flash(s string) tea.Cmd {
	m.setStatus(s)
	seq := m.statusSeq
	return tea.Tick(flashFor, func(time.Time) tea.Msg { return clearStatusMsg{seq: seq} })
}

// sync re-renders the controller page into the table
func (m *Model) sync() {
	m.page = m.grid.VisibleTable()
	headers := m.page.Table.Headers()
	cells := m.page.Table.Strings()

	widths := columnWidths(headers, cells)
	columns := make([]table.Column, len(headers))
	for i, h := range headers {
		columns[i] = table.Column{Title: h, Width: widths[i]}
	}
	rows := make([]table.Row, len(cells))
	for i, c := range cells {
		rows[i] = table.Row(c)
	}

	m.table.SetRows(nil)
	m.table.SetColumns(columns)
	m.table.SetRows(rows)
	m.table.SetHeight(max(m.page.PerPage, 1) + 1)
	switch c := m.table.Cursor(); {
	case c < 0:
		m.table.SetCursor(0)
	case c >= len(rows):
		m.table.SetCursor(len(rows) - 1)
	}
}

func columnWidths(headers []string, cells [][]string) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range cells {
		for i, c := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(c))
			}
		}
	}
	for i := range widths {
		widths[i] = min(widths[i], maxColumnWidth)
	}
	return widths
}

func arrow(d dataview.Direction) string {
	if d == dataview.Descending {
		return "▼"
	}
	return "▲"
}

// View implements tea.Model
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("FinOps Console"))
	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	b.WriteString(filterStyle.Render(m.describeFilters()))
	b.WriteString("\n\n")

	body := tableBoxStyle.Render(m.table.View())
	if m.page.Empty() {
		body = emptyStyle.Render(m.view.EmptyMessage())
	}
	if open := m.openMenu(); open != nil {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.renderMenu(open))
	}
	b.WriteString(body)
	b.WriteString("\n")

	b.WriteString(footerStyle.Render(fmt.Sprintf("Page %d of %d · %d rows",
		m.page.Page, max(m.page.TotalPages, 1), m.page.TotalCount)))
	b.WriteString("\n")

	if m.searching {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}

	switch {
	case m.analyzing != "":
		b.WriteString(m.spinner.View() + " " + statusStyle.Render(m.status))
	case m.statusErr:
		b.WriteString(errorStyle.Render(m.status))
	default:
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(renderHelp(m.cfg.Keys)))
	return b.String()
}

func (m *Model) renderTabs() string {
	tabs := make([]string, len(domain.Views))
	for i, v := range domain.Views {
		if v == m.view {
			tabs[i] = activeTabStyle.Render(string(v))
		} else {
			tabs[i] = tabStyle.Render(string(v))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) describeFilters() string {
	f := m.grid.Filters()
	var parts []string
	if f.Search != "" {
		parts = append(parts, fmt.Sprintf("search %q", f.Search))
	}
	for _, field := range m.grid.Selectable() {
		if values := f.Selections[field]; len(values) > 0 {
			parts = append(parts, field+": "+strings.Join(values, ","))
		}
	}
	if s := m.grid.SortState(); s != nil {
		parts = append(parts, "sort: "+s.Field+" "+arrow(s.Direction))
	}
	if len(parts) == 0 {
		return "no filters"
	}
	return strings.Join(parts, " · ")
}

func (m *Model) renderMenu(mn *menu) string {
	var b strings.Builder
	title := "Sort by"
	if mn == m.filter {
		title = "Filter"
	}
	b.WriteString(menuTitleStyle.Render(title))
	for i, item := range m.menuItems(mn) {
		b.WriteString("\n")
		if i == m.menuCursor {
			b.WriteString(menuSelectedStyle.Render("> " + item.label))
		} else {
			b.WriteString(menuItemStyle.Render(item.label))
		}
	}
	return menuStyle.Render(b.String())
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move • %s/%s page • %s search • %s sort • %s filter • %s copy • %s resolve • %s dismiss • %s clear • tab view • %s quit",
		k.Up, k.Down, k.PrevPage, k.NextPage, k.Search, k.SortMenu, k.FilterMenu, k.Copy, k.Resolve, k.Dismiss, k.Clear, k.Quit)
}
