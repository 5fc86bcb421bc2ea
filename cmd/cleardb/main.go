package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jsrice7391/redeemer-recovery/bootstrap"

	"github.com/joho/godotenv"
)

// 开发辅助工具：清空用户表，方便本地反复联调身份绑定流程

func main() {
	// 命令行参数
	force := flag.Bool("force", false, "跳过确认提示，强制执行清库")
	truncate := flag.Bool("truncate", false, "使用 TRUNCATE（更快，会重置自增ID）")
	flag.Parse()

	// 加载环境变量
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ 未找到 .env 文件，使用系统环境变量")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("❌ DATABASE_URL 环境变量未设置")
	}
	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = "postgres"
	}

	// 连接数据库
	db := bootstrap.NewDatabase(driver, dsn)

	// 确认提示
	if !*force {
		fmt.Println("⚠️  警告：此操作将删除 users 表中的所有数据！")
		fmt.Print("\n确认执行清库操作？(yes/no): ")
		reader := bufio.NewReader(os.Stdin)
		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(strings.ToLower(input))

		if input != "yes" && input != "y" {
			fmt.Println("❌ 操作已取消")
			return
		}
	}

	// 执行清库
	fmt.Println("\n🚀 开始清库...")

	var err error
	if *truncate {
		// TRUNCATE 更快，会重置自增ID
		err = db.Exec("TRUNCATE TABLE users RESTART IDENTITY").Error
	} else {
		// DELETE 可以触发触发器，但较慢
		err = db.Exec("DELETE FROM users").Error
	}

	if err != nil {
		log.Fatalf("❌ 清空 users 表失败: %v", err)
	}

	log.Println("✅ 已清空表: users")
	fmt.Println("\n🎉 清库操作完成！")
}
