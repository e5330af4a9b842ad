package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

// errUnsupportedFormat is returned when the requested output format is not supported.
var errUnsupportedFormat = errors.New("unsupported output format")

// formatPortals renders a slice of portal workers in the requested format.
func formatPortals(infos []portalInfo, format string) (string, error) {
	switch format {
	case formatJSON:
		return formatJSONValue(infos)
	case formatTable:
		return formatPortalsTable(infos), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

// formatPortal renders a single portal worker in the requested format.
func formatPortal(info portalInfo, format string) (string, error) {
	switch format {
	case formatJSON:
		return formatJSONValue(info)
	case formatTable:
		return formatPortalDetail(info), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatJSONValue(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal json: %w", err)
	}
	return string(b) + "\n", nil
}

func formatPortalsTable(infos []portalInfo) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tROLE\tPEER\tSTARTED-AT")

	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", info.ID, info.Role, info.Peer, info.StartedAt)
	}

	_ = w.Flush()
	return buf.String()
}

func formatPortalDetail(info portalInfo) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "ID:         %s\n", info.ID)
	fmt.Fprintf(&buf, "Role:       %s\n", info.Role)
	fmt.Fprintf(&buf, "Peer:       %s\n", info.Peer)
	fmt.Fprintf(&buf, "Started at: %s\n", info.StartedAt)
	return buf.String()
}
