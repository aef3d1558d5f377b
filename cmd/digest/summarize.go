package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yanqian/content-digest/internal/domain/digest"
	"github.com/yanqian/content-digest/internal/infra/config"
	"github.com/yanqian/content-digest/internal/infra/extract"
	"github.com/yanqian/content-digest/internal/infra/langdetect"
	"github.com/yanqian/content-digest/internal/infra/llm"
	"github.com/yanqian/content-digest/internal/infra/llm/chatgpt"
	"github.com/yanqian/content-digest/internal/infra/llm/gemini"
	"github.com/yanqian/content-digest/internal/infra/tokenizer"
	"github.com/yanqian/content-digest/internal/infra/transcript"
	"github.com/yanqian/content-digest/pkg/logger"
)

type summarizeOptions struct {
	mode      string
	inputType string
	style     string
	file      string
	stream    bool
	logLevel  string
}

func newSummarizeCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &summarizeOptions{}
	cmd := &cobra.Command{
		Use:   "summarize [content]",
		Short: "Run the digest pipeline once and print the result",
		Long: `Summarize a URL, a YouTube link or plain text.

Content comes from the positional argument, or from --file ("-" reads stdin).
Configuration is loaded the same way as the server (configs/config.yaml, .env, environment).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(args, opts.file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.NewTo(stderr, opts.logLevel)
			svc := buildService(cfg, log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			req := digest.Request{
				Content:   content,
				Mode:      digest.Mode(opts.mode),
				InputType: digest.InputType(opts.inputType),
				Style:     digest.OutputStyle(opts.style),
			}
			if opts.stream {
				return streamDigest(ctx, svc, req, stdout, stderr)
			}
			return printDigest(ctx, svc, req, stdout, stderr)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.mode, "mode", "m", string(digest.ModeBusiness), "audience mode: business, student, code or genZ")
	flags.StringVarP(&opts.inputType, "type", "t", string(digest.InputUpload), "input type: url, youtube or upload")
	flags.StringVarP(&opts.style, "style", "s", "", "output style: structured or paragraph (default from config)")
	flags.StringVarP(&opts.file, "file", "f", "", "read content from a file, - for stdin")
	flags.BoolVar(&opts.stream, "stream", false, "print the summary as it streams")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")
	return cmd
}

func readContent(args []string, file string, stdin io.Reader) (string, error) {
	switch {
	case file == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(data), nil
	case len(args) == 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("content is required: pass it as an argument or use --file")
	}
}

func printDigest(ctx context.Context, svc digest.Service, req digest.Request, stdout, stderr io.Writer) error {
	result, err := svc.Summarize(ctx, req)
	if err != nil {
		return err
	}
	if result.Style == digest.StyleParagraph {
		fmt.Fprintln(stdout, result.Summary.TLDR)
	} else {
		fmt.Fprintln(stdout, digest.FormatStructured(result.Summary))
	}
	printStats(stderr, result)
	return nil
}

// streamDigest prints only the new suffix of each cumulative chunk.
func streamDigest(ctx context.Context, svc digest.Service, req digest.Request, stdout, stderr io.Writer) error {
	events, err := svc.StreamSummary(ctx, req)
	if err != nil {
		return err
	}

	printed := ""
	for ev := range events {
		switch ev.Type {
		case digest.EventStatus:
			fmt.Fprintln(stderr, ev.Message)
		case digest.EventTLDRStart:
			printed = ""
		case digest.EventKeyPointsStart:
			printed = ""
			fmt.Fprint(stdout, "\n\nKey Points:")
		case digest.EventTLDRChunk, digest.EventKeyPointChunk:
			if ev.Type == digest.EventKeyPointChunk && printed == "" {
				fmt.Fprint(stdout, "\n• ")
			}
			fmt.Fprint(stdout, strings.TrimPrefix(ev.Text, printed))
			printed = ev.Text
			if ev.IsComplete && ev.Type == digest.EventKeyPointChunk {
				printed = ""
			}
		case digest.EventComplete:
			fmt.Fprintln(stdout)
			if ev.Metadata != nil {
				printStats(stderr, *ev.Metadata)
			}
			return nil
		case digest.EventError:
			fmt.Fprintln(stdout)
			return fmt.Errorf("%s (code %s, stage %s)", ev.Message, ev.Code, ev.Stage)
		}
	}
	return ctx.Err()
}

func printStats(w io.Writer, r digest.Result) {
	fmt.Fprintf(w, "\n%d words -> %d words (%d%% shorter), %s audience, %dms\n",
		r.OriginalWordCount, r.SummaryWordCount, r.ReductionPercentage, r.Audience, r.ProcessingTime)
}

// buildService wires the pipeline without history or snapshots.
func buildService(cfg *config.Config, log *slog.Logger) digest.Service {
	dcfg := digest.Config{
		Style:               digest.OutputStyle(cfg.Summary.Style),
		StrictValidation:    cfg.Summary.StrictValidation,
		MaxUploadChars:      cfg.Summary.MaxUploadChars,
		MinUploadChars:      cfg.Summary.MinUploadChars,
		MinContentChars:     cfg.Summary.MinContentChars,
		MaxContentChars:     cfg.Summary.MaxContentChars,
		MaxKeyPoints:        cfg.Summary.MaxKeyPoints,
		FetchTimeout:        cfg.Summary.FetchTimeout,
		GenerateTimeout:     cfg.Summary.GenerateTimeout,
		StreamChunkDelay:    cfg.Summary.StreamChunkDelay,
		Model:               cfg.LLM.Model,
		Temperature:         cfg.LLM.Temperature,
		TopK:                cfg.LLM.TopK,
		TopP:                cfg.LLM.TopP,
		StructuredMaxTokens: cfg.LLM.StructuredMaxTokens,
		ParagraphMaxTokens:  cfg.LLM.ParagraphMaxTokens,
	}

	var transcripts digest.TranscriptProvider = transcript.Placeholder{}
	if cfg.Transcript.APIURL != "" {
		transcripts = transcript.NewAPIProvider(cfg.Transcript.APIURL, cfg.Transcript.APIKey, nil, log)
	}
	var languages digest.LanguageDetector
	if cfg.Summary.DetectLanguage {
		languages = langdetect.NewDetector()
	}
	fetcher := extract.NewFetcher(extract.Options{UserAgent: cfg.Extract.UserAgent, MaxBodyBytes: cfg.Extract.MaxBodyBytes}, log)
	normalizer := digest.NewNormalizer(dcfg, fetcher, transcripts, languages, log)

	retry := llm.RetryPolicy{Attempts: cfg.LLM.RetryAttempts, BaseDelay: cfg.LLM.RetryBaseDelay}
	var generator digest.TextGenerator = gemini.NewClient(gemini.Options{APIKey: cfg.LLM.APIKey, BaseURL: cfg.LLM.BaseURL, Retry: retry}, log)
	if cfg.LLM.Provider == config.ProviderOpenAI {
		client, err := chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, retry, log)
		if err != nil {
			generator = llm.Unconfigured{}
		} else {
			generator = client
		}
	}

	return digest.NewService(dcfg, normalizer, generator, nil, nil, tokenizer.NewCounter(cfg.LLM.TokenEncoding, log), log)
}
