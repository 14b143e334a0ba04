package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mhsanaei/xui-gateway/config"
	"github.com/mhsanaei/xui-gateway/database"
	"github.com/mhsanaei/xui-gateway/logger"
	"github.com/mhsanaei/xui-gateway/util/common"
	"github.com/mhsanaei/xui-gateway/util/crypto"
	"github.com/mhsanaei/xui-gateway/web"
	"github.com/mhsanaei/xui-gateway/web/service"
	"github.com/mhsanaei/xui-gateway/xui"
)

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	logger.InitLogger(logger.ParseLevel(string(cfg.LogLevel)), cfg.LogFolder)
	return cfg
}

func runGateway() {
	log.Printf("%v %v", config.GetName(), config.GetVersion())
	cfg := loadConfig()
	defer logger.CloseLogger()

	if err := database.InitDB(&cfg.Database); err != nil {
		log.Fatal(err)
	}
	defer database.CloseDB()

	server := web.NewServer(cfg)
	if err := server.Start(); err != nil {
		logger.Error("start gateway failed:", err)
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	for {
		sig := <-sigCh
		switch sig {
		case syscall.SIGHUP:
			logger.Info("reloading configuration")
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			next, err := config.Load()
			if err == nil {
				err = next.Validate()
			}
			if err != nil {
				logger.Error("reload failed, keeping previous configuration:", err)
			} else {
				cfg = next
			}
			server = web.NewServer(cfg)
			if err := server.Start(); err != nil {
				logger.Error("restart gateway failed:", err)
				return
			}
		default:
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			return
		}
	}
}

func migrateDb() {
	cfg := loadConfig()
	if err := database.InitDB(&cfg.Database); err != nil {
		log.Fatal(err)
	}
	defer database.CloseDB()
	fmt.Println("metadata tables are up to date")
}

// checkPanel logs into the configured panel and prints what it reports.
func checkPanel() {
	cfg := loadConfig()
	client := xui.New(xui.Options{
		BaseURL:   cfg.Panel.BaseURL,
		Username:  cfg.Panel.Username,
		Password:  cfg.Panel.Password,
		Timeout:   cfg.Panel.RequestTimeout(),
		VerifySSL: cfg.Panel.VerifySSL,
	})
	defer client.Close()
	vpn := service.NewVPNService(client)

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.Panel.RequestTimeout()+5*time.Second)
	defer cancel()

	stats, err := vpn.ServerStats(ctx)
	if err != nil {
		fmt.Println("panel check failed:", err)
		os.Exit(1)
	}
	fmt.Println("panel:", cfg.Panel.BaseURL)
	fmt.Printf("cpu: %.1f%%  memory: %.1f%%  disk: %.1f%%\n", stats.CPUUsage, stats.MemoryUsage, stats.DiskUsage)
	fmt.Println("uptime:", time.Duration(stats.Uptime)*time.Second)
	fmt.Printf("network: up %s  down %s\n", common.FormatBytes(stats.NetworkUp), common.FormatBytes(stats.NetworkDown))

	traffic, err := vpn.TrafficStats(ctx)
	if err != nil {
		fmt.Println("traffic check failed:", err)
		os.Exit(1)
	}
	for _, t := range traffic {
		fmt.Printf("inbound %d: up %s  down %s  quota %s\n", t.InboundID, common.FormatBytes(t.Up), common.FormatBytes(t.Down), common.FormatQuota(t.Total))
	}
}

func main() {
	var rootCmd = &cobra.Command{
		Use:   config.GetName(),
		Short: "REST gateway for a 3x-ui panel",
	}

	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the gateway",
		Run: func(cmd *cobra.Command, args []string) {
			runGateway()
		},
	}

	var migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the metadata tables",
		Run: func(cmd *cobra.Command, args []string) {
			migrateDb()
		},
	}

	var checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Log into the panel and print its status",
		Run: func(cmd *cobra.Command, args []string) {
			checkPanel()
		},
	}

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(config.GetName(), config.GetVersion())
		},
	}

	var hashKeyCmd = &cobra.Command{
		Use:   "hash-key [key]",
		Short: "Print the bcrypt hash to use as XUI_GATEWAY_API_KEY",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			hash, err := crypto.HashAPIKey(args[0])
			if err != nil {
				fmt.Println("hash failed:", err)
				os.Exit(1)
			}
			fmt.Println(hash)
		},
	}

	rootCmd.AddCommand(runCmd, migrateCmd, checkCmd, versionCmd, hashKeyCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
