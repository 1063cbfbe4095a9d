package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/getpaseo/paseo/internal/daemons"
)

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openClientStore()
	if err != nil {
		return err
	}
	defer st.Close()

	registry, err := daemons.NewRegistry(ctx, st.DB())
	if err != nil {
		return err
	}

	activeID, err := st.GetSetting(ctx, activeDaemonKey)
	if err != nil {
		return err
	}

	profiles, _ := registry.Snapshot()
	if len(profiles) == 0 {
		fmt.Println("No daemons paired.")
		return nil
	}
	for _, p := range profiles {
		marker := " "
		if p.ID == activeID {
			marker = "*"
		}
		auto := "manual"
		if p.AutoConnect {
			auto = "auto"
		}
		fmt.Printf("%s %s  %s\n", marker, p.ID, auto)
	}
	return nil
}

func runUse(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: paseo use <daemon-id>")
	}
	id := args[0]

	ctx := context.Background()
	st, err := openClientStore()
	if err != nil {
		return err
	}
	defer st.Close()

	registry, err := daemons.NewRegistry(ctx, st.DB())
	if err != nil {
		return err
	}
	if _, err := registry.Get(id); err != nil {
		return err
	}
	if err := st.SetSetting(ctx, activeDaemonKey, id); err != nil {
		return err
	}
	fmt.Println("Active daemon:", id)
	return nil
}

func runRemove(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: paseo remove <daemon-id>")
	}
	id := args[0]

	ctx := context.Background()
	st, err := openClientStore()
	if err != nil {
		return err
	}
	defer st.Close()

	registry, err := daemons.NewRegistry(ctx, st.DB())
	if err != nil {
		return err
	}
	if err := registry.Deregister(ctx, id); err != nil {
		return err
	}

	active, err := st.GetSetting(ctx, activeDaemonKey)
	if err != nil {
		return err
	}
	if active == id {
		if err := st.SetSetting(ctx, activeDaemonKey, ""); err != nil {
			return err
		}
	}
	fmt.Println("Removed:", id)
	return nil
}

func runAuto(args []string) error {
	if len(args) != 2 || (args[1] != "on" && args[1] != "off") {
		return fmt.Errorf("usage: paseo auto <daemon-id> <on|off>")
	}
	id := args[0]

	ctx := context.Background()
	st, err := openClientStore()
	if err != nil {
		return err
	}
	defer st.Close()

	registry, err := daemons.NewRegistry(ctx, st.DB())
	if err != nil {
		return err
	}
	profile, err := registry.Get(id)
	if err != nil {
		return err
	}
	profile.AutoConnect = args[1] == "on"
	if err := registry.Register(ctx, profile); err != nil {
		return err
	}
	fmt.Printf("Daemon %s autoConnect: %s\n", id, args[1])
	return nil
}
