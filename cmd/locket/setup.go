package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/locket-ai/locket/internal/embeddings"
	"github.com/spf13/cobra"
)

var forceSetup bool

func init() {
	rootCmd.AddCommand(setupCmd)
	setupCmd.Flags().BoolVarP(&forceSetup, "force", "f", false, "download even if the runtime is already installed")
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Install the ONNX runtime used for local embeddings",
	Long: `Download the ONNX runtime library required by the fastembed provider into
~/.local/share/locket/lib/. ONNX_PATH, when set, takes precedence.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !forceSetup {
			if path := embeddings.LocateONNXRuntime(); path != "" {
				cmd.Printf("ONNX runtime already installed at: %s\n", path)
				return nil
			}
		}
		cmd.Printf("Downloading ONNX runtime v%s...\n", embeddings.ONNXRuntimeVersion)
		client := &http.Client{Timeout: 5 * time.Minute}
		path, err := embeddings.InstallONNXRuntime(commandContext(cmd), client, embeddings.ONNXRuntimeDir())
		if err != nil {
			return fmt.Errorf("installing ONNX runtime: %w", err)
		}
		cmd.Printf("Installed ONNX runtime to: %s\n", path)
		return nil
	},
}
