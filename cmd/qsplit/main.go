package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	cfgpkg "github.com/BenEklundCS/IGN-QuarantineSplitter/internal/config"
	"github.com/BenEklundCS/IGN-QuarantineSplitter/internal/diag"
	"github.com/BenEklundCS/IGN-QuarantineSplitter/internal/pipeline"
	"github.com/BenEklundCS/IGN-QuarantineSplitter/internal/preflight"
)

const usageLine = "usage: qsplit path/to/input_file.xml path/to/output_directory max_filesize_mb"

// 退出码：0 完成（含分片失败/输入缺失/处理错误），1 预检失败，130 被中断。
const (
	exitOK          = 0
	exitPreflight   = 1
	exitInterrupted = 130
)

var pipelineRun = pipeline.Run

var errUsage = errors.New("wrong number of arguments")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// cliFlags 为全部命令行旗标；仅显式设置的旗标参与覆盖。
type cliFlags struct {
	config          string
	logLevel        string
	logDir          string
	continueOnError bool
	keepEmptyParts  bool
	noLock          bool
	status          bool
	initDir         string
}

func run(args []string, stdout, stderr io.Writer) int {
	code := exitOK
	var fl cliFlags

	cmd := &cobra.Command{
		Use:   "qsplit <input_file.xml> <output_directory> <max_filesize_mb>",
		Short: "Split a quarantine XML export into size-bounded part files",
		Long: `qsplit splits a quarantine XML export into multiple well-formed part files.
Each part repeats the 3-line header, holds whole <scanclassset> records up to
the size threshold and ends with the closing tags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("init-config") {
				return nil
			}
			if len(args) != 3 {
				return errUsage
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("init-config") {
				code = initConfig(fl.initDir, stderr)
				return nil
			}
			code = split(cmd, args, fl, stdout, stderr)
			return nil
		},
	}
	if args == nil {
		// cobra 在 nil 时回退到 os.Args
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringVar(&fl.config, "config", "", "config file (JSON); defaults to ./config.json if present")
	f.StringVar(&fl.logLevel, "log-level", "", "log level: debug|info|warn|error")
	f.StringVar(&fl.logDir, "log-dir", "", `log directory ("-" for stderr)`)
	f.BoolVar(&fl.continueOnError, "continue-on-error", true, "keep writing later parts after a part write fails")
	f.BoolVar(&fl.keepEmptyParts, "keep-empty-parts", false, "also write parts that hold no records")
	f.BoolVar(&fl.noLock, "no-lock", false, "do not lock the output directory")
	f.BoolVar(&fl.status, "status", true, "print progress lines to stdout")
	f.StringVar(&fl.initDir, "init-config", "", "write config.json and .env templates into DIR (--init-config=DIR, default .) and exit")
	f.Lookup("init-config").NoOptDefVal = "."

	if err := cmd.Execute(); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(stdout, usageLine)
			return exitPreflight
		}
		// 旗标解析错误
		fmt.Fprintf(stderr, "%v\n", err)
		fmt.Fprintln(stdout, usageLine)
		return exitPreflight
	}
	return code
}

func split(cmd *cobra.Command, args []string, fl cliFlags, stdout, stderr io.Writer) int {
	start := time.Now()
	corrID := uuid.NewString()
	// 尺寸校验不依赖任何文件 I/O，先于 .env 加载。
	mb, err := strconv.ParseFloat(strings.TrimSpace(args[2]), 64)
	if err != nil {
		fmt.Fprintf(stdout, "Invalid max file size: could not convert %q to a number\n", args[2])
		return exitPreflight
	}
	if reason := cfgpkg.SizeReason(mb); reason != "" {
		fmt.Fprintf(stdout, "Invalid max file size: %s\n", reason)
		return exitPreflight
	}

	// 在任何 ENV 读取前，尝试加载工作目录下的 .env（不覆盖已有 ENV）。
	if err := loadDotEnv(".env"); err != nil {
		fmt.Fprintf(stderr, "ignoring .env: %v\n", err)
	}

	cfg, err := loadConfig(cmd, fl, args[0], args[1], mb)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitPreflight
	}
	if err := cfgpkg.Validate(cfg); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		dumpConfig(stderr, cfg)
		return exitPreflight
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		fmt.Fprintf(stderr, "Error creating output directory %s: %v\n", cfg.OutputDir, err)
		return exitPreflight
	}

	var logger *diag.Logger
	if sink := cfg.Logging.Sink(); sink == "" {
		logger = diag.NewLoggerTo(stderr, corrID, cfg.Logging.Level)
	} else {
		logger = diag.NewLogger(corrID, cfg.Logging.Level, sink)
	}
	defer logger.Close()

	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "assemble: %v\n", err)
		logger.Error("config", string(diag.Classify(err)), "assemble failed", &start)
		return exitPreflight
	}

	// 终端信息提示（非日志）写 stdout
	term := diag.NewTerminal(stdout, fl.status)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)

	logger.DebugStart("config", "effective", "", map[string]string{
		"input":             cfg.Input,
		"output_dir":        cfg.OutputDir,
		"max_bytes":         strconv.FormatInt(set.Limit.MaxBytes, 10),
		"continue_on_error": strconv.FormatBool(set.ContinueOnError),
		"lock_output":       strconv.FormatBool(set.LockOutput),
		"reader":            cfg.Components.Reader,
		"splitter":          cfg.Components.Splitter,
		"writer":            cfg.Components.Writer,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checkSpace(ctx, cfg.Input, cfg.OutputDir, set.Limit.MaxBytes, logger, stderr)

	logger.Start("pipeline", "run")
	res, err := pipelineRun(ctx, comp, set, logger)
	term.RunFinish(time.Since(start))
	if err != nil {
		// 错误已由 pipeline 报告到终端；此处只记录汇总
		logger.Error("pipeline", string(diag.Classify(err)), "first error", &start)
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return exitInterrupted
		}
		return exitOK
	}
	logger.InfoFinish("pipeline", "run", start, int64(len(res.Written)))
	return exitOK
}

// checkSpace 在输出目录空间可能不足时告警；不阻止运行。
// STDIN 或无法 stat 的输入跳过（后者由 Reader 报告）。
func checkSpace(ctx context.Context, input, outputDir string, maxBytes int64, logger *diag.Logger, stderr io.Writer) {
	if input == "-" {
		return
	}
	info, err := os.Stat(input)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	sp, err := preflight.CheckSpace(ctx, outputDir, preflight.EstimateNeed(info.Size(), maxBytes))
	if err != nil {
		logger.Warn("preflight", string(diag.Classify(err)), "disk usage unavailable", map[string]string{"cause": err.Error()})
		return
	}
	if !sp.Enough() {
		fmt.Fprintf(stderr, "warning: output directory may run out of space (%s)\n", sp)
		logger.Warn("preflight", "space", "low disk space", map[string]string{
			"dir":  sp.Dir,
			"free": strconv.FormatUint(sp.Free, 10),
			"need": strconv.FormatInt(sp.Need, 10),
		})
	}
}

// loadConfig 合并 Defaults < JSON < ENV < CLI。
func loadConfig(cmd *cobra.Command, fl cliFlags, input, outputDir string, mb float64) (cfgpkg.Config, error) {
	var cfgJSON []byte
	if s := os.Getenv(cfgpkg.EnvPrefix + "CONFIG_JSON"); s != "" {
		cfgJSON = []byte(s)
	}
	path := fl.config
	if path == "" {
		path = os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE")
	}
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}

	cfg := cfgpkg.Defaults()
	if path != "" || len(cfgJSON) > 0 {
		base, err := cfgpkg.LoadJSON(path, cfgJSON)
		if err != nil {
			return cfg, err
		}
		cfg = cfgpkg.Merge(cfg, base)
	}

	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return cfg, err
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	overCLI := cfgpkg.Config{Input: input, OutputDir: outputDir, MaxSizeMB: mb}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		overCLI.Logging.Level = fl.logLevel
	}
	if flags.Changed("log-dir") {
		overCLI.Logging.Dir = fl.logDir
	}
	if flags.Changed("continue-on-error") {
		v := fl.continueOnError
		overCLI.ContinueOnError = &v
	}
	if flags.Changed("no-lock") {
		v := !fl.noLock
		overCLI.LockOutput = &v
	}
	cfg = cfgpkg.Merge(cfg, overCLI)

	if flags.Changed("keep-empty-parts") {
		raw, err := cfgpkg.SetOption(cfg.Options.Splitter, "keep_empty_parts", fl.keepEmptyParts)
		if err != nil {
			return cfg, err
		}
		cfg.Options.Splitter = raw
	}
	return cfg, nil
}

func dumpConfig(w io.Writer, c cfgpkg.Config) {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return
	}
	fmt.Fprintf(w, "effective config:\n%s\n", b)
}

// initConfig 在 dir 下生成 config.json 与 .env 模板（均不覆盖已存在文件）。
func initConfig(dir string, stderr io.Writer) int {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(stderr, "init-config: %v\n", err)
		return exitPreflight
	}
	if err := writeConfig(filepath.Join(dir, "config.json"), cfgpkg.DefaultTemplateConfig()); err != nil {
		fmt.Fprintf(stderr, "init-config: %v\n", err)
		return exitPreflight
	}
	if err := writeDotEnv(filepath.Join(dir, ".env")); err != nil {
		fmt.Fprintf(stderr, "init-config: .env skipped: %v\n", err)
	}
	return exitOK
}

func writeConfig(path string, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	// 不覆盖已存在文件
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(b, '\n'))
	return err
}

// writeDotEnv 生成 .env 模板；文件已存在时跳过。
func writeDotEnv(path string) error {
	var b strings.Builder
	b.WriteString("# qsplit .env template (generated by --init-config)\n")
	b.WriteString("# precedence: CLI > ENV(.env) > JSON; empty values are ignored\n\n")
	for _, k := range []string{
		"CONFIG_FILE", "CONFIG_JSON",
		"LOG_LEVEL", "LOG_DIR",
		"CONTINUE_ON_ERROR", "LOCK_OUTPUT",
		"COMPONENTS_READER", "COMPONENTS_SPLITTER", "COMPONENTS_WRITER",
		"OPTIONS_READER_JSON", "OPTIONS_SPLITTER_JSON", "OPTIONS_WRITER_JSON",
	} {
		b.WriteString(cfgpkg.EnvPrefix + k + "=\n")
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	_, err = f.WriteString(b.String())
	return err
}

// loadDotEnv 将 .env 注入进程环境；文件不存在时忽略，已存在的变量不被覆盖。
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
