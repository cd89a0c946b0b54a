package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"bookagent-api/internal/config"
	"bookagent-api/internal/domain/entity"
	"bookagent-api/internal/wire"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. 初始化数据层（仅 PostgreSQL）
	dataLayer, cleanup, err := wire.InitializePostgresOnly(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize data layer: %v", err)
	}
	defer cleanup()

	// 3. 迁移数据库结构
	fmt.Println("Migrating database schema...")
	if err := dataLayer.PgClient.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	// 4. 创建首个管理员
	adminEmail := cfg.Bootstrap.AdminEmail
	if adminEmail == "" {
		adminEmail = "admin@bookagent.local"
	}
	adminUsername := cfg.Bootstrap.AdminUsername
	if adminUsername == "" {
		adminUsername = "admin"
	}
	adminPassword := cfg.Bootstrap.AdminPassword
	if adminPassword == "" {
		adminPassword = "admin123" // 生产环境请务必通过环境变量设置
	}

	userExists, err := dataLayer.UserRepo.ExistsByEmail(ctx, adminEmail)
	if err != nil {
		log.Fatalf("failed to check admin existence: %v", err)
	}

	if !userExists {
		fmt.Printf("Creating admin user: %s...\n", adminEmail)
		admin := entity.NewUser(adminEmail, adminUsername, "System Admin")
		admin.IsAdmin = true
		if err := admin.SetPassword(adminPassword); err != nil {
			log.Fatalf("failed to hash admin password: %v", err)
		}

		if err := dataLayer.UserRepo.Create(ctx, admin); err != nil {
			log.Fatalf("failed to create admin user: %v", err)
		}
		fmt.Printf("Admin user created successfully.\n")
	} else {
		fmt.Printf("Admin user %s already exists.\n", adminEmail)
	}

	// 5. 创建默认章节模板
	defaultTemplateName := "标准技术章节"
	existing, err := dataLayer.TemplateRepo.GetByName(ctx, defaultTemplateName)
	if err != nil {
		log.Fatalf("failed to check template existence: %v", err)
	}

	if existing == nil {
		fmt.Printf("Creating default template: %s...\n", defaultTemplateName)
		tpl := entity.NewTemplate(defaultTemplateName, "## 概述\n\n## 正文\n\n## 小结\n", entity.TemplateTypeChapter)
		tpl.Description = "包含概述、正文与小结的标准技术章节结构"
		tpl.IsDefault = true
		if err := dataLayer.TemplateRepo.Create(ctx, tpl); err != nil {
			log.Fatalf("failed to create default template: %v", err)
		}
		fmt.Printf("Default template created successfully.\n")
	} else {
		fmt.Printf("Template %q already exists.\n", defaultTemplateName)
	}

	fmt.Println("Bootstrap completed successfully.")
}
