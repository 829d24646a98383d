package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"ossa/internal/driver"
	"ossa/internal/sil"
	"ossa/internal/ui"
)

type runOutcome struct {
	result *driver.Result
	err    error
}

func runDriverWithUI(ctx context.Context, title string, m *sil.Module, opts driver.Options) (*driver.Result, error) {
	funcs := make([]string, len(m.Funcs))
	for i, f := range m.Funcs {
		funcs[i] = f.Name
	}
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan runOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Progress = driver.ChannelSink{Ch: events}
		res, err := driver.Run(ctx, m, optsCopy)
		outcomeCh <- runOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, funcs, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	if uiErr != nil {
		// keep the driver from blocking on a channel nobody reads
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
