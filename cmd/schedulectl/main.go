// Command schedulectl runs the timetable engine offline against CSV
// inputs. It shares the engine and configuration with the API so a term
// can be dry-run before any data reaches the database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/schedulo-hq/schedulo-api/internal/csvio"
	"github.com/schedulo-hq/schedulo-api/internal/models"
	"github.com/schedulo-hq/schedulo-api/internal/scheduler"
	"github.com/schedulo-hq/schedulo-api/pkg/config"
	"github.com/schedulo-hq/schedulo-api/pkg/logger"
)

func main() {
	roomsPath := flag.String("rooms", "rooms.csv", "room inventory CSV")
	facultyPath := flag.String("faculty", "faculty.csv", "faculty CSV")
	sectionsPath := flag.String("sections", "sections.csv", "sections CSV")
	outPath := flag.String("out", "timetable.csv", "output CSV for placed sessions")
	unplacedPath := flag.String("unplaced", "unplaced.csv", "output CSV for unplaced diagnostics")
	flag.Parse()

	if err := run(*roomsPath, *facultyPath, *sectionsPath, *outPath, *unplacedPath); err != nil {
		fmt.Fprintln(os.Stderr, "schedulectl:", err)
		os.Exit(1)
	}
}

func run(roomsPath, facultyPath, sectionsPath, outPath, unplacedPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	rooms, err := csvio.LoadRooms(roomsPath)
	if err != nil {
		return err
	}
	faculty, err := csvio.LoadFaculty(facultyPath)
	if err != nil {
		return err
	}
	sections, err := csvio.LoadSections(sectionsPath)
	if err != nil {
		return err
	}

	grid, err := models.ParseSlotGrid(cfg.Scheduler.DaysPerWeek, cfg.Scheduler.SlotTimes)
	if err != nil {
		return fmt.Errorf("slot grid: %w", err)
	}
	engine, err := scheduler.New(grid, rooms, faculty, scheduler.Config{
		MaxBacktrackSteps: cfg.Scheduler.MaxBacktrackSteps,
		TimeBudget:        cfg.Scheduler.TimeBudget,
		TieBreakSeed:      cfg.Scheduler.TieBreakSeed,
		RoomCapacitySlack: cfg.Scheduler.RoomCapacitySlack,
	}, log)
	if err != nil {
		return err
	}

	result, err := engine.Run(context.Background(), sections)
	if err != nil {
		return err
	}

	log.Info("run complete",
		zap.String("status", string(result.Status)),
		zap.Int("placed", result.Stats.PlacedCount),
		zap.Int("unplaced", len(result.Unplaced)),
		zap.Int("backtracks", result.Stats.BacktrackCount),
	)

	if err := csvio.WriteAssignments(outPath, result.Assignments); err != nil {
		return err
	}
	if len(result.Unplaced) > 0 {
		if err := csvio.WriteUnplaced(unplacedPath, result.Unplaced); err != nil {
			return err
		}
	}
	return nil
}
