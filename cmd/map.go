package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"courtmap/discovery"
	"courtmap/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	minMapWidth  = 60
	minMapHeight = 20
)

func mapCmd() *cobra.Command {
	var near string
	var flags criteriaFlags

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Browse nearby venues on an interactive map",
		RunE: func(cmd *cobra.Command, args []string) error {
			fd := int(os.Stdout.Fd())
			if !term.IsTerminal(fd) {
				return fmt.Errorf("map needs an interactive terminal; use 'courtmap nearby' instead")
			}
			width, height, err := term.GetSize(fd)
			if err == nil && (width < minMapWidth || height < minMapHeight) {
				return fmt.Errorf("terminal is %dx%d; map needs at least %dx%d", width, height, minMapWidth, minMapHeight)
			}

			criteria, key, err := flags.criteria()
			if err != nil {
				return err
			}
			radius, err := flags.radiusMiles()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			center, err := placeLocator{input: near}.Locate(ctx)
			if err != nil {
				if errors.Is(err, discovery.ErrLocationPermissionDenied) {
					return locationError(err)
				}
				return err
			}

			session := newSession(criteria, key, radius)
			defer session.Close()

			db := openSnapshots()
			if db != nil {
				defer db.Close()
			}
			if _, err := seedFromSnapshot(db, session, center, radius); err != nil {
				logger.Printf("snapshot load failed err=%v", err)
			}

			browser := tui.NewBrowser(ctx, session, tui.Options{
				Initial: session.SetCenter(ctx, center),
				OnCommit: func(discovery.View) {
					saveSnapshot(db, session)
				},
			})
			program := tea.NewProgram(browser, tea.WithAltScreen(), tea.WithContext(ctx))
			_, err = program.Run()
			if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&near, "near", "", "Place alias, location name or lat,lng (default: default_location from config)")
	flags.register(cmd)
	return cmd
}
