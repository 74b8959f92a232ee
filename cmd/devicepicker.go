package cmd

import (
	"fmt"
	"strings"

	"github.com/Dyastin-0/senddone/core"
	"github.com/Dyastin-0/senddone/styles"
	"github.com/charmbracelet/huh"
)

const rescan = "rescan"

// DevicePicker lets the user choose one discovered peer.
type DevicePicker struct {
	choice  string
	devices []core.Device
	filter  string
	page    int
}

func NewDevicePicker(devices []core.Device) *DevicePicker {
	return &DevicePicker{devices: devices}
}

func (p *DevicePicker) filtered() []core.Device {
	if p.filter == "" {
		return p.devices
	}

	filter := strings.ToLower(p.filter)
	var out []core.Device
	for _, d := range p.devices {
		if strings.Contains(strings.ToLower(d.ID), filter) || strings.Contains(d.Address, filter) {
			out = append(out, d)
		}
	}
	return out
}

// Run returns the chosen device's address, or rescan when the user asks for
// a fresh scan.
func (p *DevicePicker) Run() (string, error) {
	for {
		devices := p.filtered()

		pages := max((len(devices)+pageSize-1)/pageSize, 1)
		p.page = min(max(p.page, 0), pages-1)

		var options []huh.Option[string]

		filterText := "Filter peers"
		if p.filter != "" {
			filterText = fmt.Sprintf("Filter: '%s'", p.filter)
		}
		options = append(options, huh.NewOption(filterText, "filter"))

		if pages > 1 {
			info := fmt.Sprintf("Page %d of %d (%d peers)", p.page+1, pages, len(devices))
			options = append(options, huh.NewOption(styles.PAGE.Render(info), "page_info"))

			if p.page > 0 {
				options = append(options, huh.NewOption("<-", "prev_page"))
			}
			if p.page < pages-1 {
				options = append(options, huh.NewOption("->", "next_page"))
			}
		}

		start := p.page * pageSize
		end := min(start+pageSize, len(devices))
		for _, d := range devices[start:end] {
			options = append(options, huh.NewOption(formatDevice(d), d.Address))
		}

		options = append(options,
			huh.NewOption("Scan again", rescan),
			huh.NewOption("Cancel", "cancel"),
		)

		err := huh.NewSelect[string]().
			Title(fmt.Sprintf("Choose a peer (%d found):", len(p.devices))).
			Options(options...).
			Value(&p.choice).
			Height(20).
			Run()
		if err != nil {
			return "", err
		}

		switch p.choice {
		case "cancel":
			return "", ErrCanceled
		case rescan:
			return rescan, nil
		case "filter":
			if err := p.Filter(); err != nil {
				return "", err
			}
		case "prev_page":
			p.page--
		case "next_page":
			p.page++
		case "page_info":
		default:
			return p.choice, nil
		}
	}
}

func (p *DevicePicker) Filter() error {
	var filter string

	err := huh.NewInput().
		Title("Filter peers (by ID or address):").
		Value(&filter).
		Placeholder(p.filter).
		Run()
	if err != nil {
		return err
	}

	p.filter = strings.TrimSpace(filter)
	p.page = 0
	return nil
}
