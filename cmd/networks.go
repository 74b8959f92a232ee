package cmd

import (
	"context"
	"fmt"

	"github.com/Dyastin-0/senddone/core"
	"github.com/Dyastin-0/senddone/styles"
	"github.com/urfave/cli/v3"
)

func (a *app) networksCommand() *cli.Command {
	return &cli.Command{
		Name:   "networks",
		Usage:  "list local networks that can be scanned",
		Action: a.networksAction,
	}
}

func (a *app) networksAction(ctx context.Context, cmd *cli.Command) error {
	networks, err := core.LocalNetworks()
	if err != nil {
		return err
	}

	if len(networks) == 0 {
		fmt.Println(styles.WARN.Render(core.ErrNoNetwork.Error()))
		return nil
	}

	def, _ := core.DefaultNetwork()

	fmt.Println(styles.TITLE.Render("Networks"))
	for _, n := range networks {
		line := n.String()
		if n.Name == def.Name && n.IP.Equal(def.IP) {
			line += styles.INFO.Render(" (default)")
		}
		fmt.Println(line)
	}

	return nil
}

// network resolves the --network flag, an interface name, to a local network.
func network(name string) (core.Network, error) {
	if name == "" {
		return core.DefaultNetwork()
	}

	networks, err := core.LocalNetworks()
	if err != nil {
		return core.Network{}, err
	}

	for _, n := range networks {
		if n.Name == name {
			return n, nil
		}
	}

	return core.Network{}, fmt.Errorf("%w: %s", core.ErrNoNetwork, name)
}
