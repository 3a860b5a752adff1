package main

import (
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lavaforge.ai/internal/persistence/snapshot"
	"lavaforge.ai/internal/persistence/stationstore"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted stations",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Print the GUI slots of one station",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove a station record",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write every record to a compressed snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load records from a snapshot, replacing records with the same key",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func withStore(fn func(s stationstore.Store) error) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		_ = s.Close()
		return err
	}
	return s.Close()
}

func runList(cmd *cobra.Command, args []string) error {
	return withStore(func(s stationstore.Store) error {
		keys, err := s.Keys()
		if err != nil {
			return err
		}
		sort.Strings(keys)
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tSLOTS\tITEMS")
		for _, k := range keys {
			rec, err := s.Get(k)
			if err != nil {
				return fmt.Errorf("get %s: %w", k, err)
			}
			items := 0
			for _, st := range rec.Slots {
				items += st.Count
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\n", k, len(rec.Slots), items)
		}
		return tw.Flush()
	})
}

func runShow(cmd *cobra.Command, args []string) error {
	key := args[0]
	if _, err := stationstore.ParseKey(key); err != nil {
		return err
	}
	return withStore(func(s stationstore.Store) error {
		rec, err := s.Get(key)
		if errors.Is(err, stationstore.ErrNotFound) {
			return fmt.Errorf("no station %s", key)
		}
		if err != nil {
			return err
		}
		slots := make([]int, 0, len(rec.Slots))
		for i := range rec.Slots {
			slots = append(slots, i)
		}
		sort.Ints(slots)
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SLOT\tITEM\tCOUNT")
		for _, i := range slots {
			fmt.Fprintf(tw, "%d\t%s\t%d\n", i, rec.Slots[i].Item, rec.Slots[i].Count)
		}
		return tw.Flush()
	})
}

func runDelete(cmd *cobra.Command, args []string) error {
	key := args[0]
	return withStore(func(s stationstore.Store) error {
		if err := s.Delete(key); err != nil {
			return err
		}
		if err := s.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", key)
		return nil
	})
}

func runExport(cmd *cobra.Command, args []string) error {
	return withStore(func(s stationstore.Store) error {
		snap, err := snapshot.Capture(s, 0, catalogDigest())
		if err != nil {
			return err
		}
		if err := snapshot.WriteSnapshot(args[0], snap); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d stations to %s\n", snap.Header.Stations, args[0])
		return nil
	})
}

func runImport(cmd *cobra.Command, args []string) error {
	snap, err := snapshot.ReadSnapshot(args[0])
	if err != nil {
		return err
	}
	if d := catalogDigest(); d != "" && snap.Header.CatalogDigest != "" && d != snap.Header.CatalogDigest {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: snapshot catalog digest %s differs from %s\n", snap.Header.CatalogDigest, d)
	}
	return withStore(func(s stationstore.Store) error {
		n, err := snapshot.Apply(s, snap)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d stations\n", n)
		return nil
	})
}
