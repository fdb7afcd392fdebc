package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/sourcedapp/sourced-backend/internal/capture"
	"github.com/sourcedapp/sourced-backend/internal/logging"
	"github.com/sourcedapp/sourced-backend/internal/moderation"
	"github.com/sourcedapp/sourced-backend/internal/search"
)

// CLI flags
var (
	endpointFlag string
	timeoutFlag  time.Duration
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "sourced",
	Short: "Developer tooling for the Sourced media pipeline",
	Long: `Sourced is the operator CLI for the Sourced backend. It exercises the
moderation gate and visual search the same way the API does, which makes it
useful for verifying content policy decisions and debugging search results
without a mobile client.

Moderation commands run the classifiers directly and need OPENAI_API_KEY set.
The search command uploads to a deployed endpoint (SOURCED_API_URL or
--endpoint).

Examples:
  sourced search ./fit-check.jpg
  sourced search ./fit-check.jpg --endpoint https://api.sourced.app/api/search
  sourced check-text "vintage leather jacket, worn twice"
  sourced check-image https://cdn.example.com/look.jpg
  sourced check-image ./photos/outfit.png
  sourced inspect ./photos/outfit.png`,
}

var searchCmd = &cobra.Command{
	Use:   "search <image-file>",
	Short: "Run a visual product search for an image file",
	Args:  cobra.ExactArgs(1),
	Run:   runSearch,
}

var checkTextCmd = &cobra.Command{
	Use:   "check-text <text>",
	Short: "Classify text against the moderation gate",
	Args:  cobra.MinimumNArgs(1),
	Run:   runCheckText,
}

var checkImageCmd = &cobra.Command{
	Use:   "check-image <url-or-file>",
	Short: "Classify an image URL or local file against the moderation gate",
	Args:  cobra.ExactArgs(1),
	Run:   runCheckImage,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <image-file>",
	Short: "Show the EXIF metadata an upload would carry",
	Args:  cobra.ExactArgs(1),
	Run:   runInspect,
}

func init() {
	searchCmd.Flags().StringVarP(&endpointFlag, "endpoint", "e", "", "Search endpoint URL (defaults to $SOURCED_API_URL/api/search)")
	searchCmd.Flags().DurationVar(&timeoutFlag, "timeout", 0, "Bounded wait for the search call (0 = default)")
	rootCmd.AddCommand(searchCmd, checkTextCmd, checkImageCmd, inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSearch(cmd *cobra.Command, args []string) {
	logging.Init()

	endpoint := endpointFlag
	if endpoint == "" {
		if base := os.Getenv("SOURCED_API_URL"); base != "" {
			endpoint = strings.TrimRight(base, "/") + "/api/search"
		}
	}
	if endpoint == "" {
		fmt.Fprintln(os.Stderr, "Error: no endpoint; set SOURCED_API_URL or pass --endpoint")
		os.Exit(1)
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: read %s: %v\n", path, err)
		os.Exit(1)
	}

	client := search.NewClient(endpoint, timeoutFlag)
	matches, err := client.SearchBytes(cmd.Context(), filepath.Base(path), data)
	if err != nil {
		if search.IsTimeout(err) {
			fmt.Fprintln(os.Stderr, "Error: search timed out; the service may be cold-starting, try again")
		} else {
			fmt.Fprintf(os.Stderr, "Error: search failed: %v\n", err)
		}
		os.Exit(1)
	}

	if len(matches) == 0 {
		fmt.Println("No matches found.")
		return
	}
	fmt.Printf("%d matches:\n\n", len(matches))
	for i, m := range matches {
		fmt.Printf("%2d. %s\n", i+1, m.Name)
		if m.Price != "" {
			fmt.Printf("    %s", m.Price)
			if m.Seller != "" {
				fmt.Printf(" at %s", m.Seller)
			}
			fmt.Println()
		} else if m.Seller != "" {
			fmt.Printf("    %s\n", m.Seller)
		}
		fmt.Printf("    %s\n", m.ItemURL)
	}
}

func runCheckText(cmd *cobra.Command, args []string) {
	logging.Init()

	gate := localGate()
	verdict := gate.CheckText(cmd.Context(), strings.Join(args, " "))
	printVerdict(verdict)
}

func runCheckImage(cmd *cobra.Command, args []string) {
	logging.Init()

	ref := args[0]
	gate := localGate()

	var verdict moderation.Verdict
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		verdict = gate.CheckImageRef(cmd.Context(), ref)
	} else {
		c := candidateFromFile(ref)
		verdict = gate.CheckImage(cmd.Context(), c)
	}
	printVerdict(verdict)
}

func runInspect(cmd *cobra.Command, args []string) {
	logging.Init()

	c := candidateFromFile(args[0])
	meta, err := capture.Inspect(c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Content type: %s (%d bytes)\n", c.ContentType, len(c.Bytes))
	if meta.CameraMake != "" || meta.CameraModel != "" {
		fmt.Printf("Camera:       %s %s\n", meta.CameraMake, meta.CameraModel)
	}
	if meta.HasDate {
		fmt.Printf("Taken:        %s\n", meta.DateTaken.Format(time.RFC3339))
	}
	if meta.HasGPS {
		fmt.Printf("GPS:          %.6f, %.6f  (location data would be published with this upload)\n", meta.Latitude, meta.Longitude)
	} else {
		fmt.Println("GPS:          none")
	}
}

// localGate builds the same moderation gate the API serves. Needs
// OPENAI_API_KEY; the banned-word list alone is not a useful approximation
// of the gate's verdicts.
func localGate() *moderation.Gate {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "Error: OPENAI_API_KEY is not set")
		os.Exit(1)
	}
	text := moderation.NewOpenAITextClassifier(openai.NewClient(apiKey))
	image := moderation.NewOpenAIImageClassifier(apiKey)
	return moderation.NewGate(text, image)
}

func candidateFromFile(path string) capture.MediaCandidate {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: read %s: %v\n", path, err)
		os.Exit(1)
	}
	contentType := http.DetectContentType(data)
	c, err := capture.FromBytes(data, contentType, filepath.Base(path), 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return c
}

func printVerdict(v moderation.Verdict) {
	if v.Safe {
		fmt.Println("SAFE")
		return
	}
	fmt.Printf("REJECTED: %s\n", v.Reason)
	os.Exit(1)
}
