package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/libmocap/mocap/internal/database"
	gormstorage "github.com/libmocap/mocap/internal/storage/gorm"
)

// show lists the recordings of a SQLite database, or prints one recording
// frame by frame when an ID is given.
func (a *app) show(dbPath, idArg string, out io.Writer) error {
	// opening a missing path would create an empty database
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	db, err := database.NewManager(a.dbLogger).GetSqliteDB(dbPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if idArg == "" {
		recs, err := gormstorage.Recordings(db)
		if err != nil {
			return err
		}
		for _, r := range recs {
			state := "finished"
			if !r.Finished {
				state = "open"
			}
			fmt.Fprintf(out, "%d\t%s\t%s\t%d frames\t%d samples\t%s\n", r.ID, r.Name, r.Source, r.NumFrames, r.Samples, state)
		}
		a.logger.Info("Listed recordings", "db", dbPath, "count", len(recs))
		return nil
	}

	id, err := strconv.ParseUint(idArg, 10, 64)
	if err != nil {
		return fmt.Errorf("recording id %q is not a number", idArg)
	}
	rec, frames, err := gormstorage.LoadRecording(db, uint(id))
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "recording %d: %q from %s\n", rec.ID, rec.Name, rec.Source)
	if rec.MarkerSet != "" {
		fmt.Fprintf(out, "  marker set: %s\n", rec.MarkerSet)
	}
	fmt.Fprintf(out, "  frames:     %d at %g Hz, %d samples\n", len(frames), rec.DataRate, rec.Samples)
	for _, f := range frames {
		occluded := 0
		for _, s := range f.Markers {
			if s.Occluded {
				occluded++
			}
		}
		t := "-"
		if !math.IsNaN(f.Time) {
			t = strconv.FormatFloat(f.Time, 'g', -1, 64) + "s"
		}
		fmt.Fprintf(out, "  frame %d\t%s\t%d markers, %d occluded\n", f.Frame, t, len(f.Markers), occluded)
	}
	return nil
}
