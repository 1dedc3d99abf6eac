// Package ui provides the terminal dashboard.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/marketdash/internal/domain"
)

// MarketService is the slice of the service layer the dashboard reads from.
type MarketService interface {
	ListMarkets(ctx context.Context, limit int) ([]domain.Market, error)
	ListTrending(ctx context.Context, limit int) ([]domain.Market, error)
}

// Config controls listing sizes and the auto-refresh period.
type Config struct {
	MarketsLimit    int
	TrendingLimit   int
	RefreshInterval time.Duration
}

const detailPage = "detail"

// App is the main TUI application.
type App struct {
	app    *tview.Application
	pages  *tview.Pages
	layout *tview.Flex

	// Views
	trendingTable *tview.Table
	marketsTable  *tview.Table
	form          *tview.Form
	search        *tview.InputField
	category      *tview.InputField
	minProb       *tview.InputField
	maxProb       *tview.InputField
	detail        *tview.TextView
	status        *tview.TextView

	markets MarketService
	cfg     Config
	logger  *slog.Logger

	// State
	view       view
	ctx        context.Context
	refreshing atomic.Bool
	lastFocus  tview.Primitive
}

// NewApp creates a new TUI application.
func NewApp(markets MarketService, cfg Config, logger *slog.Logger) *App {
	a := &App{
		app:     tview.NewApplication(),
		markets: markets,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "tui")),
		ctx:     context.Background(),
	}

	a.setupViews()
	a.setupLayout()
	a.setupKeyboard()

	return a
}

func newMarketTable(title string) *tview.Table {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0).
		SetSelectable(true, false)
	table.SetTitle(title).SetBorder(true)
	return table
}

func (a *App) setupViews() {
	a.trendingTable = newMarketTable(" Trending ")
	a.marketsTable = newMarketTable(" All Markets ")
	for _, t := range []*tview.Table{a.trendingTable, a.marketsTable} {
		table := t
		table.SetSelectedFunc(func(row, _ int) {
			if m, ok := table.GetCell(row, 0).GetReference().(domain.Market); ok {
				a.showDetail(m)
			}
		})
	}

	a.search = tview.NewInputField().SetLabel("Search ").SetFieldWidth(28)
	a.category = tview.NewInputField().SetLabel("Category ").SetFieldWidth(14)
	a.minProb = tview.NewInputField().SetLabel("Min % ").SetFieldWidth(6).
		SetAcceptanceFunc(tview.InputFieldFloat)
	a.maxProb = tview.NewInputField().SetLabel("Max % ").SetFieldWidth(6).
		SetAcceptanceFunc(tview.InputFieldFloat)
	a.setFilterInputs(defaultFilterInputs)
	for _, f := range []*tview.InputField{a.search, a.category, a.minProb, a.maxProb} {
		f.SetChangedFunc(func(string) { a.applyFilters() })
	}

	a.form = tview.NewForm().
		SetHorizontal(true).
		AddFormItem(a.search).
		AddFormItem(a.category).
		AddFormItem(a.minProb).
		AddFormItem(a.maxProb).
		AddButton("Reset", a.resetFilters)
	a.form.SetTitle(" Filters ").SetBorder(true)

	a.detail = tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true).
		SetDoneFunc(func(tcell.Key) { a.hideDetail() })
	a.detail.SetTitle(" Market (Esc to close) ").SetBorder(true)

	a.status = tview.NewTextView().SetDynamicColors(true)
	a.renderStatus()
}

// setupLayout stacks header, trending, filters, markets and status.
func (a *App) setupLayout() {
	header := tview.NewTextView().
		SetDynamicColors(true).
		SetText("[::b]Prediction Markets Dashboard[::-]  Polymarket and Manifold Markets   " +
			"[gray]r refresh | / search | x reset filters | tab switch | enter details | q quit[-]")

	a.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(header, 1, 0, false).
		AddItem(a.trendingTable, a.cfg.TrendingLimit+3, 0, false).
		AddItem(a.form, 3, 0, false).
		AddItem(a.marketsTable, 0, 1, true).
		AddItem(a.status, 1, 0, false)

	// Centered overlay for the detail pane.
	overlay := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(a.detail, 0, 4, true).
			AddItem(nil, 0, 1, false), 0, 3, true).
		AddItem(nil, 0, 1, false)

	a.pages = tview.NewPages().
		AddPage("main", a.layout, true, true).
		AddPage(detailPage, overlay, true, false)

	a.app.SetRoot(a.pages, true).SetFocus(a.marketsTable)
}

// setupKeyboard configures keyboard shortcuts. Typing into a filter field
// only reacts to Esc.
func (a *App) setupKeyboard() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC {
			a.app.Stop()
			return nil
		}
		if name, _ := a.pages.GetFrontPage(); name == detailPage {
			return event
		}
		if _, typing := a.app.GetFocus().(*tview.InputField); typing {
			if event.Key() == tcell.KeyEscape {
				a.app.SetFocus(a.marketsTable)
				return nil
			}
			return event
		}

		switch event.Key() {
		case tcell.KeyTab:
			a.cycleFocus()
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q', 'Q':
				a.app.Stop()
				return nil
			case 'r', 'R':
				go a.refresh(a.ctx)
				return nil
			case '/':
				a.app.SetFocus(a.search)
				return nil
			case 'x', 'X':
				a.resetFilters()
				return nil
			}
		}
		return event
	})
}

func (a *App) cycleFocus() {
	switch a.app.GetFocus() {
	case a.trendingTable:
		a.app.SetFocus(a.marketsTable)
	case a.marketsTable:
		a.app.SetFocus(a.search)
	default:
		a.app.SetFocus(a.trendingTable)
	}
}

// Run starts the TUI and blocks until the user quits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.ctx = ctx

	go a.refreshLoop(ctx)
	go func() {
		<-ctx.Done()
		a.app.Stop()
	}()

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("app run failed: %w", err)
	}
	return nil
}

// refreshLoop loads the listings immediately and then on every interval.
func (a *App) refreshLoop(ctx context.Context) {
	a.refresh(ctx)

	interval := a.cfg.RefreshInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.refresh(ctx)
		}
	}
}

// refresh fetches both listings and redraws. Overlapping calls are dropped.
func (a *App) refresh(ctx context.Context) {
	if !a.refreshing.CompareAndSwap(false, true) {
		return
	}
	defer a.refreshing.Store(false)

	a.app.QueueUpdateDraw(func() {
		a.view.loading = true
		a.renderStatus()
	})

	var markets, trending []domain.Market
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		markets, err = a.markets.ListMarkets(gctx, a.cfg.MarketsLimit)
		return err
	})
	g.Go(func() error {
		var err error
		trending, err = a.markets.ListTrending(gctx, a.cfg.TrendingLimit)
		return err
	})
	err := g.Wait()
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		a.logger.Warn("refresh failed", slog.String("error", err.Error()))
	}

	a.app.QueueUpdateDraw(func() {
		a.view.loading = false
		a.view.err = err
		if err == nil {
			a.view.markets = markets
			a.view.trending = trending
			a.view.updated = time.Now()
		}
		a.render()
	})
}

func (a *App) currentFilterInputs() filterInputs {
	return filterInputs{
		search:   a.search.GetText(),
		category: a.category.GetText(),
		minProb:  a.minProb.GetText(),
		maxProb:  a.maxProb.GetText(),
	}
}

func (a *App) setFilterInputs(in filterInputs) {
	a.search.SetText(in.search)
	a.category.SetText(in.category)
	a.minProb.SetText(in.minProb)
	a.maxProb.SetText(in.maxProb)
}

// resetFilters restores the form defaults and returns focus to the markets.
func (a *App) resetFilters() {
	a.setFilterInputs(defaultFilterInputs)
	a.applyFilters()
	a.app.SetFocus(a.marketsTable)
}

func (a *App) applyFilters() {
	f, err := a.currentFilterInputs().parse()
	if err != nil {
		// Partial input such as "-" or "."; keep the previous filters.
		return
	}
	a.view.filters = f
	a.renderMarkets()
	a.renderStatus()
}

func (a *App) render() {
	fillTable(a.trendingTable, a.view.trending, false)
	a.renderMarkets()
	a.renderStatus()
}

func (a *App) renderMarkets() {
	visible := a.view.visible()
	fillTable(a.marketsTable, visible, true)
	a.marketsTable.SetTitle(fmt.Sprintf(" All Markets (%d) ", len(visible)))
}

func (a *App) renderStatus() {
	a.status.SetText(a.view.statusText())
}

// fillTable rewrites table with one row per market. The first cell of each
// row carries the market as its reference.
func fillTable(table *tview.Table, markets []domain.Market, withCategory bool) {
	table.Clear()

	headers := []string{"Source", "Question", "Probability", "Volume"}
	if withCategory {
		headers = append(headers, "Category")
	}
	for col, header := range headers {
		table.SetCell(0, col, tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetSelectable(false))
	}

	for i, m := range markets {
		row := i + 1
		table.SetCell(row, 0, tview.NewTableCell(string(m.Source)).
			SetTextColor(SourceColor(m.Source)).
			SetReference(m))
		table.SetCell(row, 1, tview.NewTableCell(Truncate(m.Question, 70)).
			SetExpansion(1))
		table.SetCell(row, 2, tview.NewTableCell(FormatProbability(m.Probability)).
			SetTextColor(ProbabilityColor(m.Probability)).
			SetAlign(tview.AlignRight))
		table.SetCell(row, 3, tview.NewTableCell(FormatVolume(m.Volume)).
			SetAlign(tview.AlignRight))
		if withCategory {
			table.SetCell(row, 4, tview.NewTableCell(m.Category))
		}
	}

	if len(markets) > 0 {
		if r, _ := table.GetSelection(); r < 1 || r > len(markets) {
			table.Select(1, 0)
		}
	}
}

func (a *App) showDetail(m domain.Market) {
	a.lastFocus = a.app.GetFocus()
	a.detail.SetText(DetailText(m)).ScrollToBeginning()
	a.pages.ShowPage(detailPage)
	a.app.SetFocus(a.detail)
}

func (a *App) hideDetail() {
	a.pages.HidePage(detailPage)
	if a.lastFocus != nil {
		a.app.SetFocus(a.lastFocus)
	} else {
		a.app.SetFocus(a.marketsTable)
	}
}
