package transcribe

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"voxledger/internal/app"
	"voxledger/internal/app/model"
	"voxledger/internal/config"
	"voxledger/internal/logging"
)

var (
	filePath string
	tier     string
	language string
	output   string
)

func init() {
	Cmd.Flags().StringVarP(&filePath, "file", "f", "", "audio file to transcribe")
	Cmd.Flags().StringVarP(&tier, "tier", "t", "base", "model tier: tiny, base, small, medium, large")
	Cmd.Flags().StringVarP(&language, "language", "l", model.LanguageAuto, "spoken language code, or auto")
	Cmd.Flags().StringVarP(&output, "output", "o", "", "write the text here instead of stdout")

	Cmd.MarkFlagRequired("file")
}

// Cmd represents the transcribe command
var Cmd = &cobra.Command{
	Use:   "transcribe",
	Short: "Transcribe a single local audio file, without jobs or accounting",
	Long: `Transcribe a single local audio file using the configured engine.

No job is created and no quota is consumed; this is the quick path for
checking an engine setup or transcribing something ad hoc.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logging.New("warn")

		modelTier := model.ModelTier(tier)
		if !modelTier.Valid() {
			return fmt.Errorf("unknown model tier %q", tier)
		}
		if _, err := os.Stat(filePath); err != nil {
			return fmt.Errorf("audio file: %w", err)
		}

		factory, err := app.ProvideEngineFactory(cfg)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		progress := mpb.New(mpb.WithOutput(os.Stderr), mpb.WithRefreshRate(120*time.Millisecond))
		bar := progress.AddBar(100,
			mpb.PrependDecorators(
				decor.Name(filepath.Base(filePath), decor.WCSyncSpaceR),
				decor.Percentage(decor.WCSyncSpace),
			),
			mpb.AppendDecorators(decor.Elapsed(decor.ET_STYLE_GO)),
		)

		eng, err := factory.Acquire(ctx, modelTier)
		if err != nil {
			bar.Abort(true)
			return err
		}
		bar.SetCurrent(20)

		result, err := eng.Transcribe(ctx, filePath, language)
		if err != nil {
			bar.Abort(true)
			return err
		}
		bar.SetCurrent(100)
		progress.Wait()

		text := result.Text()
		if output == "" {
			fmt.Println(text)
			return nil
		}
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		if err := os.WriteFile(output, []byte(text), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s (%d words, language %s)\n",
			output, len(result.WordSegments()), result.DetectedLanguage)
		return nil
	},
}
