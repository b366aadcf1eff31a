package main

import (
	"RentalDashboard/src/config"
	"RentalDashboard/src/dashboard"
	"RentalDashboard/src/datapush"
	"RentalDashboard/src/datasource/email"
	"RentalDashboard/src/datasource/file"
	"RentalDashboard/src/metrics"
	"RentalDashboard/src/processor"
	"RentalDashboard/src/rental"
	"RentalDashboard/src/report"
	"RentalDashboard/src/storage"
	"RentalDashboard/src/utils"
	"RentalDashboard/src/web"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/robfig/cron"
)

func main() {
	jsonFolder := flag.String("config", "./config", "配置目录")
	jsonFile := flag.String("file", "config.json", "配置文件(json/yaml)")
	dataJsonFile := flag.String("data", "dataconfig.json", "列映射文件")
	pidFile := flag.String("pid", "dashboard.pid", "进程号文件，供 reload 工具发送 SIGHUP")
	once := flag.Bool("once", false, "渲染一次并输出文本报表后退出")
	dataset := flag.String("dataset", "day", "once 模式的数据集(hour/day)")
	start := flag.String("start", "", "once 模式的起始日期 YYYY-MM-DD")
	end := flag.String("end", "", "once 模式的结束日期 YYYY-MM-DD")
	frame := flag.String("frame", "", "once 模式下把过滤后的表另存为 xlsx")
	flag.Parse()

	cfg, dcfg, err := config.LoadConfig(*jsonFolder, *jsonFile, *dataJsonFile)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	logger.SetMirror(os.Stderr)
	defer logger.Close()

	recorder := metrics.NewPrometheusRecorder()
	loader := file.NewLoader(cfg, dcfg, logger)
	session := dashboard.NewSession(loader, logger, recorder)

	if *once {
		if err := runOnce(session, cfg, *dataset, *start, *end, *frame); err != nil {
			logger.Error(err.Error())
			logger.Close()
			os.Exit(1)
		}
		return
	}

	// 加载失败不退出，HTTP 接口返回 503，等待数据文件就绪后重新加载
	if err := session.Load(); err != nil {
		logger.Warning("首次加载失败，等待数据更新: " + err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	file.SetupSignalHandler(cancel)

	if err := writePidFile(*pidFile); err != nil {
		logger.Warning("写入进程号文件失败: " + err.Error())
	} else {
		defer os.Remove(*pidFile)
	}

	// 设置定时任务
	c := cron.New()
	if err := scheduleJobs(ctx, c, cfg, loader, session, logger, recorder); err != nil {
		logger.Error("创建定时任务失败: " + err.Error())
		return // 重要错误应该终止程序
	}
	c.Start()
	defer c.Stop()

	// 数据文件变化时重新加载
	if cfg.Data.Watch {
		monitor, err := file.NewFileMonitor(cfg.Data.HourPath, cfg.Data.DayPath)
		if err != nil {
			logger.Error("创建文件监控失败: " + err.Error())
		} else {
			defer monitor.Close()
			go func() {
				err := monitor.Watch(ctx, func(name string) {
					session.Reload("文件变化: " + name)
				})
				if err != nil {
					logger.Error("文件监控错误: " + err.Error())
				}
			}()
			logger.Info("正在监控数据文件: " + cfg.Data.HourPath + ", " + cfg.Data.DayPath)
		}
	}

	go handleHangup(ctx, session, logger)

	var srv *http.Server
	if cfg.Server.Addr != "" {
		srv = &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           web.NewServer(session, logger, recorder.GetRegistry(), cfg.Report.Language).Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP 服务已启动: " + cfg.Server.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP 服务错误: " + err.Error())
				cancel()
			}
		}()
	}

	logger.Info("仪表盘已启动，按Ctrl+C退出")
	<-ctx.Done()

	logger.Info("正在退出...")
	if srv != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		srv.Shutdown(shutdownCtx)
	}
}

// scheduleJobs 注册定时刷新、日志轮转和邮件检查
func scheduleJobs(ctx context.Context, c *cron.Cron, cfg *config.Config, loader *file.Loader, session *dashboard.Session, logger *storage.Logger, recorder metrics.Recorder) error {
	// 日志轮转
	if err := c.AddFunc("@every 1m", func() {
		if err := logger.CheckRotate(cfg); err != nil {
			logger.Error("日志轮转失败: " + err.Error())
		}
	}); err != nil {
		return err
	}

	var pusher *datapush.DingTalkPusher
	if cfg.Push.Webhook != "" {
		pusher = datapush.NewDingTalkPusher(cfg.Push.Webhook, cfg.Push.Secret, cfg.Report.Language)
	}

	if cfg.Schedule.Refresh != "" {
		err := c.AddFunc(cfg.Schedule.Refresh, func() {
			if err := session.Reload("定时任务"); err != nil {
				return
			}
			if pusher == nil && cfg.Report.Dir == "" {
				return
			}

			ds, _ := dashboard.ParseDataset(cfg.Push.Dataset)
			page, err := session.Render(dashboard.Selection{Dataset: ds})
			if err != nil {
				logger.Error("定时渲染失败: " + err.Error())
				return
			}
			if cfg.Report.Dir != "" {
				if err := exportReport(cfg.Report.Dir, page); err != nil {
					logger.Error(err.Error())
				}
			}
			if pusher != nil {
				if err := pusher.PushPage(ctx, page); err != nil {
					recorder.RecordPush(metrics.StatusError)
					logger.Error("推送失败: " + err.Error())
					return
				}
				recorder.RecordPush(metrics.StatusOK)
				logger.Info("推送成功: " + page.ID)
			}
		})
		if err != nil {
			return fmt.Errorf("刷新任务 %q: %w", cfg.Schedule.Refresh, err)
		}
	}

	if cfg.Email.Enabled {
		emailClient := email.NewEmailClient(cfg.Email.Server, cfg.Email.Username, cfg.Email.Password, logger)
		handler := email.NewDatasetAttachmentHandler(cfg.Email.TargetSubject,
			cfg.Data.HourPath, cfg.Data.DayPath, loader, logger)

		// 使用配置中的检查间隔
		interval := time.Duration(cfg.Email.CheckInterval).String() // 例如 "5m0s"
		cronSpec := fmt.Sprintf("@every %s", interval)
		err := c.AddFunc(cronSpec, func() {
			logger.Info(fmt.Sprintf("开始定时检查(间隔: %v)...", cronSpec))
			saved, err := email.CheckAndProcessEmails(emailClient, handler, cfg.Email.TargetSubject, logger)
			if err != nil {
				logger.Error("检查处理邮件失败: " + err.Error())
			}
			// 开启文件监控时由监控触发重新加载
			if len(saved) > 0 && !cfg.Data.Watch {
				session.Reload("邮件附件")
			}
		})
		if err != nil {
			return err
		}
		logger.Info(fmt.Sprintf("邮件监控服务已启动(检查间隔: %v)", interval))
	}
	return nil
}

// handleHangup 收到 SIGHUP 时重新打开日志并重新加载数据
func handleHangup(ctx context.Context, session *dashboard.Session, logger *storage.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigChan:
			if err := logger.Reopen(""); err != nil {
				log.Println("重新打开日志失败:", err)
			}
			session.Reload("SIGHUP")
		}
	}
}

// runOnce 加载、渲染一次，输出文本报表
func runOnce(session *dashboard.Session, cfg *config.Config, dataset, start, end, framePath string) error {
	ds, err := dashboard.ParseDataset(dataset)
	if err != nil {
		return err
	}
	r, err := parseRange(start, end)
	if err != nil {
		return err
	}
	if err := session.Load(); err != nil {
		return err
	}

	page, err := session.Render(dashboard.Selection{Dataset: ds, Range: r})
	if err != nil {
		return err
	}
	if cfg.Report.Dir != "" {
		if err := exportReport(cfg.Report.Dir, page); err != nil {
			return err
		}
	}
	if framePath != "" {
		if err := exportFrame(page, framePath); err != nil {
			return err
		}
	}
	return report.Text(os.Stdout, page, cfg.Report.Language)
}

// parseRange 空字符串表示使用表中的最小/最大日期
func parseRange(start, end string) (processor.DateRange, error) {
	var r processor.DateRange
	var err error
	if start != "" {
		if r.Start, err = rental.ParseDate(start); err != nil {
			return r, fmt.Errorf("起始日期无效: %w", err)
		}
	}
	if end != "" {
		if r.End, err = rental.ParseDate(end); err != nil {
			return r, fmt.Errorf("结束日期无效: %w", err)
		}
	}
	return r, nil
}

// exportReport 写入 dir/rental-<dataset>-<日期>.xlsx
func exportReport(dir string, page *dashboard.Page) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建报表目录失败: %w", err)
	}
	name := fmt.Sprintf("rental-%s-%s.xlsx", page.Dataset, page.RenderedAt.Format("20060102150405"))
	return report.WriteXLSX(page, filepath.Join(dir, name))
}

// exportFrame 只导出过滤后的明细表
func exportFrame(page *dashboard.Page, path string) error {
	df := page.Filtered.Frame().Drop(rental.ColRow)
	if df.Err != nil {
		return df.Err
	}
	return utils.SaveToExcel(df, path)
}

func writePidFile(path string) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}
