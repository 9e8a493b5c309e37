package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Quaternijkon/HomDGCat/internal/config"
	"github.com/Quaternijkon/HomDGCat/internal/fetch"
	"github.com/Quaternijkon/HomDGCat/internal/i18n"
	"github.com/Quaternijkon/HomDGCat/internal/logging"
	"github.com/Quaternijkon/HomDGCat/internal/manifest"
	"github.com/Quaternijkon/HomDGCat/internal/mirror"
	"github.com/Quaternijkon/HomDGCat/internal/progress"
	"github.com/Quaternijkon/HomDGCat/internal/serve"
	"github.com/Quaternijkon/HomDGCat/internal/version"
)

// separator 是命令行横幅的分隔线。
const separator = "======================================================="

// shutdownGrace 是收到信号后等待在途请求完成的时长。
const shutdownGrace = 5 * time.Second

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	lang        string
	command     string
	args        []string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}
	if opts.lang != "" {
		cfg.Global.Language = opts.lang
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}
	cat := i18n.New(cfg.Global.Language)

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["site_dir"] = cfg.Global.SiteDir
		fields["base_url"] = cfg.Global.BaseURL
		fields["engine"] = cfg.Serve.Engine
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	switch opts.command {
	case "download":
		return runDownload(cfg, cat, logger, opts.args)
	case "serve":
		return runServe(cfg, cat, logger, opts.args)
	case "status":
		return runStatus(cfg, cat, opts.args)
	case "":
		printUsage(cat)
		return 0
	default:
		fmt.Fprintf(stdErr, "未知命令: %s\n", opts.command)
		printUsage(cat)
		return 2
	}
}

// parseCLIFlags 解析全局参数，并结合环境变量计算最终的配置路径。
// 第一个非标志参数视为子命令，其余参数留给子命令自行解析。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("homdgcat-mirror", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		langFlag   string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./mirror.toml，可被 HOMDGCAT_CONFIG 覆盖）")
	fs.StringVar(&langFlag, "lang", "", "覆盖显示语言 (zh|en)")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}
	if langFlag != "" && langFlag != "zh" && langFlag != "en" {
		return cliOptions{}, fmt.Errorf("不支持的语言: %s", langFlag)
	}

	path := os.Getenv("HOMDGCAT_CONFIG")
	if configFlag != "" {
		path = configFlag
	}

	opts := cliOptions{
		configPath:  path,
		lang:        langFlag,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}
	if rest := fs.Args(); len(rest) > 0 {
		opts.command = rest[0]
		opts.args = rest[1:]
	}
	return opts, nil
}

// runDownload 对照清单抓取缺失文件并打印进度与汇总。
func runDownload(cfg *config.Config, cat *i18n.Catalog, logger *logrus.Logger, args []string) int {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	workers := cfg.Fetch.Workers
	retries := cfg.Fetch.MaxRetries
	fs.IntVar(&workers, "w", workers, "并发下载数")
	fs.IntVar(&workers, "workers", workers, "并发下载数")
	fs.IntVar(&retries, "r", retries, "失败重试次数")
	fs.IntVar(&retries, "retry", retries, "失败重试次数")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(stdErr, "解析参数失败: %v\n", err)
		return 2
	}

	entries, err := manifest.Load(cfg.Global.FileList)
	if err != nil {
		fmt.Fprintln(stdErr, cat.Tf("manifest.missing", cfg.Global.FileList))
		fmt.Fprintln(stdErr, cat.T("manifest.hint"))
		return 1
	}

	guard, err := mirror.NewGuard(cfg.Global.SiteDir)
	if err != nil {
		fmt.Fprintf(stdErr, "镜像目录不可用: %v\n", err)
		return 1
	}

	report := progress.Scan(guard, entries)

	fmt.Fprintln(stdOut, separator)
	fmt.Fprintln(stdOut, cat.T("download.title"))
	fmt.Fprintln(stdOut, separator)
	fmt.Fprintln(stdOut, cat.Tf("download.filelist", report.Total))
	fmt.Fprintln(stdOut, cat.Tf("download.existing", report.Existing))
	fmt.Fprintln(stdOut, cat.Tf("download.pending", len(report.Missing)))
	fmt.Fprintln(stdOut, cat.Tf("download.workers", workers))
	fmt.Fprintln(stdOut, cat.Tf("download.retries", retries))
	fmt.Fprintln(stdOut, separator)

	if len(report.Missing) == 0 {
		fmt.Fprintln(stdOut, cat.T("download.nothing"))
		return 0
	}

	engine, err := fetch.NewEngine(fetch.Options{
		Guard:          guard,
		Origin:         cfg.Global.Origin(),
		Client:         fetch.NewClient(cfg.Fetch.Timeout.DurationValue()),
		Logger:         logger,
		UserAgent:      cfg.Fetch.UserAgent,
		Referer:        cfg.Fetch.Referer,
		Workers:        workers,
		MaxRetries:     retries,
		InitialBackoff: cfg.Fetch.InitialBackoff.DurationValue(),
		RateLimit:      cfg.Fetch.RateLimit,
	})
	if err != nil {
		fmt.Fprintf(stdErr, "构建下载引擎失败: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker := progress.NewTracker(len(report.Missing), cfg.Fetch.ProgressInterval, func(s progress.Totals) {
		fmt.Fprintln(stdOut, cat.Tf("download.progress",
			s.Processed, s.Total, s.Fetched, s.NotFound, s.Failed, s.SpeedKBps()))
	})
	for res := range engine.Run(ctx, report.Missing) {
		tracker.Observe(res)
	}
	totals := tracker.Finish()

	fmt.Fprintln(stdOut, "\n"+separator)
	fmt.Fprintln(stdOut, cat.Tf("download.done", totals.Elapsed.Seconds()))
	fmt.Fprintln(stdOut, cat.Tf("download.new", totals.Fetched, float64(totals.Bytes)/1024/1024))
	fmt.Fprintln(stdOut, cat.Tf("download.notfound", totals.NotFound))
	fmt.Fprintln(stdOut, cat.Tf("download.failed", totals.Failed))
	fmt.Fprintln(stdOut, separator)

	if written, err := tracker.WriteFailureReport(cfg.Fetch.FailureReport); err != nil {
		fmt.Fprintf(stdErr, "%v\n", err)
	} else if written {
		fmt.Fprintln(stdOut, cat.Tf("download.report_saved", cfg.Fetch.FailureReport))
	}

	fields := logging.BaseFields("download_done", cfg.Global.FileList)
	fields["fetched"] = totals.Fetched
	fields["skipped"] = totals.Skipped
	fields["not_found"] = totals.NotFound
	fields["failed"] = totals.Failed
	fields["bytes"] = totals.Bytes
	logger.WithFields(fields).Info("下载结束")

	if ctx.Err() != nil {
		return 1
	}
	return 0
}

// runServe 启动静态镜像服务并等待退出信号。
func runServe(cfg *config.Config, cat *i18n.Catalog, logger *logrus.Logger, args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	port := cfg.Global.ListenPort
	engineName := cfg.Serve.Engine
	fs.IntVar(&port, "p", port, "监听端口")
	fs.IntVar(&port, "port", port, "监听端口")
	fs.StringVar(&engineName, "engine", engineName, "服务引擎 (fiber|stdlib)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(stdErr, "解析参数失败: %v\n", err)
		return 2
	}

	if info, err := os.Stat(cfg.Global.SiteDir); err != nil || !info.IsDir() {
		fmt.Fprintln(stdErr, cat.Tf("serve.no_site", cfg.Global.SiteDir))
		return 1
	}
	guard, err := mirror.NewGuard(cfg.Global.SiteDir)
	if err != nil {
		fmt.Fprintf(stdErr, "镜像目录不可用: %v\n", err)
		return 1
	}

	engine, err := serve.New(serve.Options{
		Engine:           engineName,
		Guard:            guard,
		RootIndex:        cfg.Serve.RootIndex,
		Logger:           logger,
		CompressMinBytes: cfg.Serve.CompressMinBytes,
		CompressLevel:    cfg.Serve.CompressLevel,
		CacheEntries:     cfg.Serve.CacheEntries,
		IdleTimeout:      cfg.Serve.IdleTimeout.DurationValue(),
	})
	if err != nil {
		fmt.Fprintf(stdErr, "构建服务引擎失败: %v\n", err)
		return 1
	}

	ln, err := serve.Listen(port)
	if err != nil {
		fmt.Fprintf(stdErr, "%v\n", err)
		return 1
	}

	fmt.Fprintln(stdOut, separator)
	fmt.Fprintln(stdOut, cat.T("serve.title"))
	fmt.Fprintln(stdOut, separator)
	fmt.Fprintln(stdOut, cat.Tf("serve.engine", engine.Name()))
	fmt.Fprintln(stdOut, cat.Tf("serve.addr", fmt.Sprintf("http://localhost:%d", port)))
	fmt.Fprintln(stdOut, cat.T("serve.stop"))
	fmt.Fprintln(stdOut, separator)

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
		"engine": engine.Name(),
	}).Info("镜像服务启动")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- engine.Serve(ln) }()

	select {
	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
			return 1
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := engine.Shutdown(shutdownCtx); err != nil {
			logger.WithFields(logrus.Fields{"action": "shutdown"}).Warn(err.Error())
		}
		<-errCh
		fmt.Fprintln(stdOut, cat.T("serve.stopped"))
	}
	return 0
}

// runStatus 盘点镜像目录并打印完成度统计。
func runStatus(cfg *config.Config, cat *i18n.Catalog, args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(stdErr, "解析参数失败: %v\n", err)
		return 2
	}

	entries, err := manifest.Load(cfg.Global.FileList)
	if err != nil {
		fmt.Fprintln(stdErr, cat.Tf("manifest.missing", cfg.Global.FileList))
		fmt.Fprintln(stdErr, cat.T("manifest.hint"))
		return 1
	}
	guard, err := mirror.NewGuard(cfg.Global.SiteDir)
	if err != nil {
		fmt.Fprintf(stdErr, "镜像目录不可用: %v\n", err)
		return 1
	}

	report := progress.Scan(guard, entries)

	fmt.Fprintln(stdOut, separator)
	fmt.Fprintln(stdOut, cat.T("status.title"))
	fmt.Fprintln(stdOut, separator)
	fmt.Fprintln(stdOut, cat.Tf("status.filelist", report.Total))
	fmt.Fprintln(stdOut, cat.Tf("status.downloaded", report.Existing, float64(report.ExistingBytes)/1024/1024))
	fmt.Fprintln(stdOut, cat.Tf("status.missing", len(report.Missing)))
	fmt.Fprintln(stdOut, cat.Tf("status.progress", report.Percent()))
	if len(report.MissingCategories) > 0 {
		fmt.Fprintln(stdOut, cat.T("status.categories"))
		for _, c := range report.MissingCategories {
			fmt.Fprintf(stdOut, "    %s: %d\n", c.Category, c.Count)
		}
	}
	fmt.Fprintln(stdOut, separator)
	return 0
}

func printUsage(cat *i18n.Catalog) {
	fmt.Fprintln(stdOut, version.Full())
	fmt.Fprintln(stdOut, "")
	fmt.Fprintln(stdOut, cat.T("usage.text"))
}
