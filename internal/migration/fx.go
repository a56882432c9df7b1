package migration

import (
	auditdomain "github.com/akadahq/akada/internal/audit/domain"
	billingdomain "github.com/akadahq/akada/internal/billing/domain"
	"github.com/akadahq/akada/internal/config"
	enrollmentdomain "github.com/akadahq/akada/internal/enrollment/domain"
	identitydomain "github.com/akadahq/akada/internal/identity/domain"
	"github.com/akadahq/akada/internal/seed"
	tenantdomain "github.com/akadahq/akada/internal/tenant/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, node *snowflake.Node) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql deployments are dev/self-hosted only;
			// AutoMigrate keeps them in step without a second set of
			// dialect-specific migration files.
			if err := AutoMigrate(conn); err != nil {
				return err
			}
		}

		return seed.EnsureRootAdmin(conn, node, cfg.RootAdminEmail)
	}),
)

func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&tenantdomain.Tenant{},
		&tenantdomain.TenantSettings{},
		&identitydomain.IdentityAccount{},
		&enrollmentdomain.Student{},
		&enrollmentdomain.StaffMember{},
		&enrollmentdomain.AttendanceEntry{},
		&enrollmentdomain.Assessment{},
		&enrollmentdomain.Notice{},
		&enrollmentdomain.TimetableSlot{},
		&billingdomain.PaymentRecord{},
		&auditdomain.AuditEvent{},
	)
}
