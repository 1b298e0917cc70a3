package migrations

import (
	"context"
	"fmt"

	chstore "tokenforge/internal/storage/clickhouse"
)

// RunClickhouseMigrations creates the DSN's database if needed, applies the
// embedded event schema, and returns a connection to that database together
// with the files it executed. The native driver runs one statement per Exec.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, []string, error) {
	dbName, err := chstore.DatabaseFromDSN(dsn)
	if err != nil {
		return nil, nil, err
	}

	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return nil, nil, fmt.Errorf("connect clickhouse admin: %w", err)
	}
	err = admin.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", dbName))
	admin.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("create database %s: %w", dbName, err)
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, nil, fmt.Errorf("connect clickhouse %s: %w", dbName, err)
	}

	applied, err := apply(ctx, ClickhouseFS, "clickhouse", func(ctx context.Context, stmt string) error {
		return conn.Exec(ctx, stmt)
	})
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return conn, applied, nil
}
