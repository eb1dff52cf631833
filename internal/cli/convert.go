package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pdfconvert/internal/converter"
	"pdfconvert/internal/types"
	"pdfconvert/internal/validator"
	"pdfconvert/internal/workspace"
)

type convertOptions struct {
	mode   string
	output string
	force  bool
}

func convertCmd(opts *rootOptions) *cobra.Command {
	co := &convertOptions{}

	c := &cobra.Command{
		Use:   "convert <file.pdf>",
		Short: "Convert a PDF file without starting the web service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			v := validator.New(cfg.Limits.MaxUploadSize, validator.WithPageCounter(converter.FitzSource{}))

			out, err := runConvert(cmd, v, converter.FitzSource{}, args[0], co)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), out)

			return nil
		},
	}

	c.Flags().StringVarP(&co.mode, "mode", "m", string(types.ModeDocx), "output format: docx|xlsx")
	c.Flags().StringVarP(&co.output, "output", "o", "", "output path (defaults to the input name with the new extension)")
	c.Flags().BoolVarP(&co.force, "force", "f", false, "overwrite an existing output file")

	return c
}

func runConvert(cmd *cobra.Command, v *validator.Validator, src converter.Source, input string, co *convertOptions) (string, error) {
	conv, err := converter.New(types.Mode(co.mode), src)
	if err != nil {
		return "", err
	}

	f, err := os.Open(input)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(f, v.MaxSize()+1))
	if err != nil {
		return "", err
	}

	if res := v.Validate(filepath.Base(input), info.Size(), data); !res.Accepted() {
		return "", res.Err()
	}

	output := co.output
	if output == "" {
		dir := filepath.Dir(input)
		output = filepath.Join(dir, workspace.DisplayName(filepath.Base(input), conv.Extension()))
	}

	if _, err := os.Stat(output); err == nil {
		if !co.force {
			return "", fmt.Errorf("%s already exists, use --force to overwrite", output)
		}

		if err := os.Remove(output); err != nil {
			return "", err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	slog.Debug("Converting", "input", input, "output", output, "mode", conv.Mode())

	outcome := converter.Run(cmd.Context(), conv, input, output, filepath.Base(output))
	if !outcome.Succeeded() {
		_ = os.Remove(output)
		return "", outcome.Err
	}

	return outcome.OutputPath, nil
}
