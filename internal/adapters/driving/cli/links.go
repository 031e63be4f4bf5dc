package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

var (
	linkDescription   string
	linkMaxUploads    int
	linkExpiresInDays int
	linksJSON         bool
)

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Manage upload links",
	Long: `Upload links let someone without an owner identity upload files into
your corpus through the HTTP API at /api/v1/upload-to/<token>. A link can
cap the number of uploads and expire after a number of days.`,
}

var linksCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an upload link",
	Args:  cobra.ExactArgs(1),
	RunE:  runLinksCreate,
}

var linksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your upload links",
	Args:  cobra.NoArgs,
	RunE:  runLinksList,
}

var linksPauseCmd = &cobra.Command{
	Use:   "pause <token>",
	Short: "Stop a link from accepting uploads",
	Args:  cobra.ExactArgs(1),
	RunE:  setLinkActive(false),
}

var linksResumeCmd = &cobra.Command{
	Use:   "resume <token>",
	Short: "Let a paused link accept uploads again",
	Args:  cobra.ExactArgs(1),
	RunE:  setLinkActive(true),
}

var linksDeleteCmd = &cobra.Command{
	Use:   "delete <token>...",
	Short: "Delete upload links. Files uploaded through them are kept",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLinksDelete,
}

func init() {
	linksCreateCmd.Flags().StringVarP(&linkDescription, "description", "d", "", "text shown to uploaders")
	linksCreateCmd.Flags().IntVar(&linkMaxUploads, "max-uploads", 0, "maximum number of uploads (default unlimited)")
	linksCreateCmd.Flags().IntVar(&linkExpiresInDays, "expires-in-days", 0, "days until the link expires (default never)")
	linksListCmd.Flags().BoolVar(&linksJSON, "json", false, "output as JSON")

	linksCmd.AddCommand(linksCreateCmd)
	linksCmd.AddCommand(linksListCmd)
	linksCmd.AddCommand(linksPauseCmd)
	linksCmd.AddCommand(linksResumeCmd)
	linksCmd.AddCommand(linksDeleteCmd)
	rootCmd.AddCommand(linksCmd)
}

func runLinksCreate(cmd *cobra.Command, args []string) error {
	if linkService == nil {
		return errNotConfigured
	}

	req := domain.NewUploadLink{OwnerID: ownerID, Name: args[0], Description: linkDescription}
	if cmd.Flags().Changed("max-uploads") {
		req.MaxUploads = &linkMaxUploads
	}
	if cmd.Flags().Changed("expires-in-days") {
		req.ExpiresInDays = &linkExpiresInDays
	}

	link, err := linkService.Create(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("failed to create link: %w", err)
	}

	cmd.Printf("Created upload link %q\n\n", link.Name)
	cmd.Printf("  Token:   %s\n", link.Token)
	cmd.Printf("  Upload:  POST /api/v1/upload-to/%s\n", link.Token)
	cmd.Printf("  Limit:   %s\n", limitLabel(link))
	cmd.Printf("  Expires: %s\n", expiryLabel(link))
	return nil
}

// linkJSON is the listing shape written by --json.
type linkJSON struct {
	Token          string `json:"token"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	MaxUploads     int    `json:"max_uploads"`
	CurrentUploads int    `json:"current_uploads"`
	Active         bool   `json:"active"`
	ExpiresAt      string `json:"expires_at,omitempty"`
}

func runLinksList(cmd *cobra.Command, _ []string) error {
	if linkService == nil {
		return errNotConfigured
	}

	links, err := linkService.List(cmd.Context(), ownerID)
	if err != nil {
		return fmt.Errorf("failed to list links: %w", err)
	}

	if linksJSON {
		out := make([]linkJSON, 0, len(links))
		for i := range links {
			l := &links[i]
			entry := linkJSON{
				Token:          l.Token,
				Name:           l.Name,
				Description:    l.Description,
				MaxUploads:     l.MaxUploads,
				CurrentUploads: l.CurrentUploads,
				Active:         l.Active,
			}
			if l.ExpiresAt != nil {
				entry.ExpiresAt = l.ExpiresAt.Format(time.RFC3339)
			}
			out = append(out, entry)
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal links: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(links) == 0 {
		cmd.Println("No upload links.")
		return nil
	}

	now := time.Now()
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOKEN\tNAME\tUPLOADS\tEXPIRES\tSTATE")
	for i := range links {
		l := &links[i]
		fmt.Fprintf(tw, "%s\t%s\t%d/%s\t%s\t%s\n", l.Token, l.Name, l.CurrentUploads, limitLabel(l), expiryLabel(l), linkState(l, now))
	}
	return tw.Flush()
}

func setLinkActive(active bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if linkService == nil {
			return errNotConfigured
		}
		link, err := linkService.SetActive(cmd.Context(), ownerID, args[0], active)
		if err != nil {
			return fmt.Errorf("failed to update link: %w", err)
		}
		cmd.Printf("Link %q is now %s\n", link.Name, linkState(link, time.Now()))
		return nil
	}
}

func runLinksDelete(cmd *cobra.Command, args []string) error {
	if linkService == nil {
		return errNotConfigured
	}

	for _, token := range args {
		if err := linkService.Delete(cmd.Context(), ownerID, token); err != nil {
			return fmt.Errorf("failed to delete link %s: %w", token, err)
		}
		cmd.Printf("Deleted link %s\n", token)
	}
	return nil
}

func limitLabel(l *domain.UploadLink) string {
	if l.MaxUploads == 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d", l.MaxUploads)
}

func expiryLabel(l *domain.UploadLink) string {
	if l.ExpiresAt == nil {
		return "never"
	}
	return l.ExpiresAt.Local().Format(time.DateTime)
}

func linkState(l *domain.UploadLink, now time.Time) string {
	err := l.Usable(now)
	switch {
	case err == nil:
		return "active"
	case errors.Is(err, domain.ErrLinkInactive):
		return "paused"
	case errors.Is(err, domain.ErrLinkExpired):
		return "expired"
	default:
		return "full"
	}
}
