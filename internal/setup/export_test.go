package setup

var CheckPendingMigrations = checkPendingMigrations
