package list

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// FormatOutput formats a listing response according to output format.
func FormatOutput(response *Response, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(response)
	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)
		defer encoder.Close()
		encoder.SetIndent(2)
		return encoder.Encode(response)
	case "table":
		return formatTable(response)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func formatTable(response *Response) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	if len(response.Volumes) > 0 {
		fmt.Fprintf(w, "ID\tNAME\tROLE\tENCRYPTED\tCASE-SENSITIVE\n")
		for _, v := range response.Volumes {
			fmt.Fprintf(w, "%d\t%s\t%s\t%v\t%v\n", v.ID, v.Name, v.Role, v.Encrypted, v.CaseSensitive)
		}
	}

	if len(response.Snapshots) > 0 {
		fmt.Fprintf(w, "XID\tNAME\tCREATED\n")
		for _, s := range response.Snapshots {
			fmt.Fprintf(w, "%d\t%s\t%s\n", s.Xid, s.Name, s.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	}

	if len(response.Files) > 0 {
		fmt.Fprintf(w, "INODE\tTYPE\tSIZE\tPATH\n")
		for _, f := range response.Files {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", f.InodeID, f.Type, f.Size, f.Path)
		}
	}

	if len(response.Volumes) == 0 && len(response.Snapshots) == 0 && len(response.Files) == 0 {
		fmt.Println("No results.")
	}

	return nil
}
