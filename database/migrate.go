package database

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"helpdesk_backend/internal/config"
	"helpdesk_backend/internal/models"
	"helpdesk_backend/internal/models/support"
)

var gormDB *gorm.DB

// ConnectGorm инициализирует GORM с URL из конфигурации
func ConnectGorm() (*gorm.DB, error) {
	if gormDB != nil {
		return gormDB, nil
	}

	cfg := config.GetConfig()
	dsn := cfg.Database.DSN

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to GORM: %w", err)
	}

	gormDB = db
	return db, nil
}

// AutoMigrate выполняет миграцию всех моделей и ставит NOTIFY-триггеры
func AutoMigrate() error {
	db, err := ConnectGorm()
	if err != nil {
		return err
	}

	// Схемы создаются до миграции, иначе падают TableName с префиксом
	for _, schema := range []string{"auth", "support"} {
		if err := db.Exec("CREATE SCHEMA IF NOT EXISTS " + schema).Error; err != nil {
			return fmt.Errorf("failed to create schema %s: %w", schema, err)
		}
	}

	err = db.AutoMigrate(
		&models.AuthRecord{},
		&models.UserProfile{},
		&models.AdminProfile{},
		// support модуль
		&support.Conversation{},
		&support.Message{},
	)

	if err != nil {
		log.Fatalf("❌ AutoMigrate ошибка: %v", err)
	}

	if err := installNotifyTriggers(db); err != nil {
		log.Fatalf("❌ Установка NOTIFY-триггеров: %v", err)
	}

	log.Println("✅ AutoMigrate успешно завершен.")
	return nil
}

// installNotifyTriggers публикует построчные изменения support.messages
// и support.conversations в канал из конфигурации. Полезная нагрузка
// повторяет формат realtime.notifyPayload.
func installNotifyTriggers(db *gorm.DB) error {
	channel := config.GetConfig().Realtime.Channel

	statements := []string{
		fmt.Sprintf(`
CREATE OR REPLACE FUNCTION support.notify_change() RETURNS trigger AS $$
DECLARE
    payload json;
BEGIN
    payload := json_build_object(
        'table', TG_ARGV[0],
        'event', TG_OP,
        'row', row_to_json(NEW)
    );
    PERFORM pg_notify('%s', payload::text);
    RETURN NEW;
END;
$$ LANGUAGE plpgsql`, channel),

		`DROP TRIGGER IF EXISTS messages_notify ON support.messages`,
		`CREATE TRIGGER messages_notify
    AFTER INSERT ON support.messages
    FOR EACH ROW EXECUTE FUNCTION support.notify_change('messages')`,

		`DROP TRIGGER IF EXISTS conversations_notify ON support.conversations`,
		`CREATE TRIGGER conversations_notify
    AFTER INSERT OR UPDATE ON support.conversations
    FOR EACH ROW EXECUTE FUNCTION support.notify_change('conversations')`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	return nil
}
