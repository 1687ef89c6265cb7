// Command nostrssctl is the operator CLI: it dials the control-plane
// gRPC service and drives the same subcommand surface described in
// spec.md §6 (state, feed {add|delete|list|info}, profile
// {add|delete|list|info}, relay {add|delete|list}), rendering tabular
// output with github.com/olekukonko/tablewriter, matching the
// retrieval pack's preference for a real table library over hand-rolled
// column alignment. Argument parsing, input validation and table
// rendering are explicitly out of core scope (spec.md §1); this file is
// the thin external collaborator the spec describes, not the event
// broker itself.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"google.golang.org/grpc"

	"nostrss/internal/control"
	"nostrss/pkg/client"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return usageErr()
	}

	address := os.Getenv("GRPC_ADDRESS")
	if address == "" {
		address = "[::1]:33333"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := client.NewGRPCClient(ctx, client.ClientConfig{
		Address:      address,
		Timeout:      10 * time.Second,
		MaxRetries:   2,
		RetryBackoff: 200 * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("dialing control plane at %s: %w", address, err)
	}
	defer conn.Close()

	switch args[0] {
	case "state":
		return cmdState(ctx, conn)
	case "feed":
		return cmdFeed(ctx, conn, args[1:])
	case "profile":
		return cmdProfile(ctx, conn, args[1:])
	case "relay":
		return cmdRelay(ctx, conn, args[1:])
	default:
		return usageErr()
	}
}

func usageErr() error {
	return fmt.Errorf("usage: nostrssctl {state|feed|profile|relay} ...")
}

// hasSaveFlag reports whether --save/-s is present anywhere in args and
// returns args with it stripped, matching spec §6's global --save/-s switch.
func hasSaveFlag(args []string) ([]string, bool) {
	out := make([]string, 0, len(args))
	save := false
	for _, a := range args {
		if a == "--save" || a == "-s" {
			save = true
			continue
		}
		out = append(out, a)
	}
	return out, save
}

func invoke(ctx context.Context, conn *grpc.ClientConn, method string, req, resp any) error {
	fullMethod := "/" + control.ServiceName + "/" + method
	return conn.Invoke(ctx, fullMethod, req, resp, grpc.CallContentSubtype("json"))
}

func cmdState(ctx context.Context, conn *grpc.ClientConn) error {
	var resp control.StateResponse
	if err := invoke(ctx, conn, "State", &control.StateRequest{}, &resp); err != nil {
		return err
	}
	fmt.Println(resp.State)
	return nil
}

func cmdFeed(ctx context.Context, conn *grpc.ClientConn, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: nostrssctl feed {add|delete|list|info} ...")
	}
	args, save := hasSaveFlag(args)

	switch args[0] {
	case "list":
		var resp control.FeedsListResponse
		if err := invoke(ctx, conn, "FeedsList", &control.FeedsListRequest{}, &resp); err != nil {
			return err
		}
		renderFeeds(resp.Feeds)
		return nil

	case "info":
		if len(args) < 2 {
			return fmt.Errorf("usage: nostrssctl feed info <id>")
		}
		var resp control.FeedInfoResponse
		if err := invoke(ctx, conn, "FeedInfo", &control.FeedInfoRequest{ID: args[1]}, &resp); err != nil {
			return err
		}
		renderFeeds([]control.FeedItem{resp.Feed})
		return nil

	case "add":
		if len(args) < 5 {
			return fmt.Errorf("usage: nostrssctl feed add <id> <name> <url> <schedule> [tags,comma,separated] [--save]")
		}
		item := control.FeedItem{
			ID:       args[1],
			Name:     args[2],
			URL:      args[3],
			Schedule: args[4],
		}
		if len(args) > 5 && args[5] != "" {
			item.Tags = strings.Split(args[5], ",")
		}
		var resp control.AddFeedResponse
		return invoke(ctx, conn, "AddFeed", &control.AddFeedRequest{Feed: item, Save: save}, &resp)

	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: nostrssctl feed delete <id> [--save]")
		}
		var resp control.DeleteFeedResponse
		return invoke(ctx, conn, "DeleteFeed", &control.DeleteFeedRequest{ID: args[1], Save: save}, &resp)

	default:
		return fmt.Errorf("unknown feed subcommand %q", args[0])
	}
}

func cmdProfile(ctx context.Context, conn *grpc.ClientConn, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: nostrssctl profile {add|delete|list|info} ...")
	}
	args, save := hasSaveFlag(args)

	switch args[0] {
	case "list":
		var resp control.ProfilesListResponse
		if err := invoke(ctx, conn, "ProfilesList", &control.ProfilesListRequest{}, &resp); err != nil {
			return err
		}
		renderProfiles(resp.Profiles)
		return nil

	case "info":
		if len(args) < 2 {
			return fmt.Errorf("usage: nostrssctl profile info <id>")
		}
		var resp control.ProfileInfoResponse
		if err := invoke(ctx, conn, "ProfileInfo", &control.ProfileInfoRequest{ID: args[1]}, &resp); err != nil {
			return err
		}
		renderProfiles([]control.ProfileItem{resp.Profile})
		return nil

	case "add":
		if len(args) < 3 {
			return fmt.Errorf("usage: nostrssctl profile add <id> <private_key_hex_or_nsec> [--save]")
		}
		item := control.NewProfileItem{ID: args[1], PrivateKey: args[2]}
		var resp control.AddProfileResponse
		return invoke(ctx, conn, "AddProfile", &control.AddProfileRequest{Profile: item, Save: save}, &resp)

	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: nostrssctl profile delete <id> [--save]")
		}
		var resp control.DeleteProfileResponse
		return invoke(ctx, conn, "DeleteProfile", &control.DeleteProfileRequest{ID: args[1], Save: save}, &resp)

	default:
		return fmt.Errorf("unknown profile subcommand %q", args[0])
	}
}

// cmdRelay implements `relay {add|delete|list}` by reading the target
// profile's current state, mutating its relay slice client-side, then
// re-issuing AddProfile with the modified copy — there is no separate
// AddRelay RPC in the control surface (see DESIGN.md / SPEC_FULL.md §6).
// AddProfile only accepts a NewProfileItem carrying a private_key, so
// `relay add/delete` require the operator to supply it; `relay list`
// only needs ProfileInfo.
func cmdRelay(ctx context.Context, conn *grpc.ClientConn, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: nostrssctl relay {add|delete|list} ...")
	}
	args, save := hasSaveFlag(args)

	switch args[0] {
	case "list":
		if len(args) < 2 {
			return fmt.Errorf("usage: nostrssctl relay list <profile_id>")
		}
		var resp control.ProfileInfoResponse
		if err := invoke(ctx, conn, "ProfileInfo", &control.ProfileInfoRequest{ID: args[1]}, &resp); err != nil {
			return err
		}
		renderRelays(resp.Profile.Relays)
		return nil

	case "add":
		if len(args) < 5 {
			return fmt.Errorf("usage: nostrssctl relay add <profile_id> <private_key> <relay_name> <target> [--save]")
		}
		profileID, privateKey, name, target := args[1], args[2], args[3], args[4]

		current, err := currentProfile(ctx, conn, profileID, privateKey)
		if err != nil {
			return err
		}
		current.Relays = append(current.Relays, control.Relay{Name: name, Target: target, Active: true})

		var resp control.AddProfileResponse
		return invoke(ctx, conn, "AddProfile", &control.AddProfileRequest{Profile: current, Save: save}, &resp)

	case "delete":
		if len(args) < 4 {
			return fmt.Errorf("usage: nostrssctl relay delete <profile_id> <private_key> <relay_name> [--save]")
		}
		profileID, privateKey, name := args[1], args[2], args[3]

		current, err := currentProfile(ctx, conn, profileID, privateKey)
		if err != nil {
			return err
		}
		filtered := current.Relays[:0]
		for _, r := range current.Relays {
			if r.Name != name {
				filtered = append(filtered, r)
			}
		}
		current.Relays = filtered

		var resp control.AddProfileResponse
		return invoke(ctx, conn, "AddProfile", &control.AddProfileRequest{Profile: current, Save: save}, &resp)

	default:
		return fmt.Errorf("unknown relay subcommand %q", args[0])
	}
}

// currentProfile fetches a profile's public metadata via ProfileInfo and
// reassembles a NewProfileItem the caller can mutate and resubmit via
// AddProfile. ProfileInfo never returns the private key (spec §6), so the
// caller must supply it again for the re-add to succeed.
func currentProfile(ctx context.Context, conn *grpc.ClientConn, id, privateKey string) (control.NewProfileItem, error) {
	var resp control.ProfileInfoResponse
	if err := invoke(ctx, conn, "ProfileInfo", &control.ProfileInfoRequest{ID: id}, &resp); err != nil {
		return control.NewProfileItem{}, err
	}
	p := resp.Profile
	return control.NewProfileItem{
		ID:                p.ID,
		PrivateKey:        privateKey,
		Name:              p.Name,
		Relays:            p.Relays,
		DisplayName:       p.DisplayName,
		Description:       p.Description,
		Picture:           p.Picture,
		Banner:            p.Banner,
		NIP05:             p.NIP05,
		LUD16:             p.LUD16,
		PoWLevel:          p.PoWLevel,
		RecommendedRelays: p.RecommendedRelays,
	}, nil
}

func renderFeeds(feeds []control.FeedItem) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "URL", "Schedule", "Profiles", "Tags", "Cache Size", "PoW"})
	for _, f := range feeds {
		table.Append([]string{
			f.ID,
			f.Name,
			f.URL,
			f.Schedule,
			strings.Join(f.Profiles, ","),
			strings.Join(f.Tags, ","),
			strconv.Itoa(f.CacheSize),
			strconv.Itoa(int(f.PoWLevel)),
		})
	}
	table.Render()
}

func renderProfiles(profiles []control.ProfileItem) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Public Key", "Name", "Relays", "PoW"})
	for _, p := range profiles {
		table.Append([]string{
			p.ID,
			p.PublicKey,
			p.Name,
			strconv.Itoa(len(p.Relays)),
			strconv.Itoa(int(p.PoWLevel)),
		})
	}
	table.Render()
}

func renderRelays(relays []control.Relay) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Name", "Target", "Active", "PoW"})
	for _, r := range relays {
		table.Append([]string{
			r.Name,
			r.Target,
			strconv.FormatBool(r.Active),
			strconv.Itoa(int(r.PoWLevel)),
		})
	}
	table.Render()
}
