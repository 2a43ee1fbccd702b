package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/keydeck/keydeck/internal/config"
	"github.com/keydeck/keydeck/internal/events"
	"github.com/keydeck/keydeck/internal/profile"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage keybind profiles",
	RunE:  runProfilesList,
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	RunE:  runProfilesList,
}

var profilesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one profile in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilesShow,
}

var profilesCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilesCreate,
}

var profilesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilesDelete,
}

var switchCmd = &cobra.Command{
	Use:   "switch <id>",
	Short: "Make a profile active",
	Args:  cobra.ExactArgs(1),
	RunE:  runSwitch,
}

var envCmd = &cobra.Command{
	Use:   "env <name>",
	Short: "Switch the editing environment",
	Args:  cobra.ExactArgs(1),
	RunE:  runEnv,
}

func init() {
	profilesCreateCmd.Flags().StringP("game", "g", "quake3", "target game for the profile")

	profilesCmd.AddCommand(profilesListCmd, profilesShowCmd, profilesCreateCmd, profilesDeleteCmd)
	rootCmd.AddCommand(profilesCmd, switchCmd, envCmd)
}

func runProfilesList(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	defer a.Close()

	snap := a.Coord.Snapshot()
	fmt.Fprint(cmd.OutOrStdout(), formatProfiles(snap))
	return nil
}

// formatProfiles renders the profile table, active profile marked, sorted
// by name for stable output.
func formatProfiles(snap profile.Snapshot) string {
	if len(snap.Profiles) == 0 {
		return "no profiles yet; create one with 'keydeck profiles create'\n"
	}

	profiles := make([]profile.Profile, 0, len(snap.Profiles))
	for _, p := range snap.Profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })

	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, " \tID\tNAME\tGAME\tBINDS\tALIASES")
	for _, p := range profiles {
		marker := " "
		if p.ID == snap.ActiveProfile {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			marker, p.ID, p.Name, p.Game, len(p.Binds), len(p.Aliases))
	}
	_ = w.Flush()
	return buf.String()
}

func runProfilesShow(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	defer a.Close()

	result, err := a.RPC.Request(context.Background(), events.ReqGetProfile,
		events.GetProfileRequest{ID: args[0]})
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}
	p, err := profileResult(result)
	if err != nil {
		return err
	}

	active := a.Coord.Snapshot().ActiveProfile == p.ID
	fmt.Fprint(cmd.OutOrStdout(), formatProfileDetail(p, active))
	return nil
}

// formatProfileDetail renders one profile with its binds and aliases, keys
// sorted for stable output.
func formatProfileDetail(p profile.Profile, active bool) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s (%s)\n", p.Name, p.ID)
	fmt.Fprintf(&buf, "game:   %s\n", p.Game)
	if active {
		fmt.Fprintln(&buf, "active: yes")
	}

	fmt.Fprintf(&buf, "binds (%d):\n", len(p.Binds))
	for _, k := range sortedKeys(p.Binds) {
		fmt.Fprintf(&buf, "  %s = %s\n", k, p.Binds[k])
	}
	fmt.Fprintf(&buf, "aliases (%d):\n", len(p.Aliases))
	for _, k := range sortedKeys(p.Aliases) {
		fmt.Fprintf(&buf, "  %s = %s\n", k, p.Aliases[k])
	}
	return buf.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// profileResult narrows an rpc answer to a profile; a mismatched payload
// type is an error, never a panic.
func profileResult(result any) (profile.Profile, error) {
	p, ok := result.(profile.Profile)
	if !ok {
		return profile.Profile{}, fmt.Errorf("unexpected response type %T", result)
	}
	return p, nil
}

func runProfilesCreate(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	defer a.Close()

	game, _ := cmd.Flags().GetString("game")
	if _, ok := a.Config.FindGame(game); !ok {
		return fmt.Errorf("unknown game %q; configured games: %s", game, gameNames(a.Config.GetGames()))
	}

	result, err := a.RPC.Request(context.Background(), events.ReqCreateProfile,
		events.CreateProfileRequest{Name: args[0], Game: game})
	if err != nil {
		return fmt.Errorf("creating profile: %w", err)
	}

	p, err := profileResult(result)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", p.Name, p.ID)
	return nil
}

func runProfilesDelete(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	defer a.Close()

	if _, err := a.RPC.Request(context.Background(), events.ReqDeleteProfile,
		events.DeleteProfileRequest{ID: args[0]}); err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
	return nil
}

func runSwitch(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	defer a.Close()

	result, err := a.RPC.Request(context.Background(), events.ReqSwitchProfile,
		events.SwitchProfileRequest{ID: args[0]})
	if err != nil {
		return fmt.Errorf("switching profile: %w", err)
	}

	p, err := profileResult(result)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "active profile is now %s (%s)\n", p.Name, p.ID)
	return nil
}

func runEnv(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	defer a.Close()

	if _, err := a.RPC.Request(context.Background(), events.ReqSwitchEnv,
		events.SwitchEnvRequest{Environment: profile.Environment(args[0])}); err != nil {
		return fmt.Errorf("switching environment: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "environment is now %s\n", args[0])
	return nil
}

func gameNames(games []config.GameConfig) string {
	names := make([]string, 0, len(games))
	for _, g := range games {
		names = append(names, g.Name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
