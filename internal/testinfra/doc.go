// Package testinfra starts the containers integration tests run against.
//
// Files in this package build only with the integration tag:
//
//	go test -tags integration ./...
//
// Tests that need a container call SkipIfNoDocker first, so the suite still
// passes on machines without a Docker daemon.
//
// # ClickHouse
//
// NewClickHouseContainer starts a single-node ClickHouse server with an empty
// database. Exec runs DDL and Insert loads rows as JSONEachRow; analytics
// statements go through the regular clickhouse.Client pointed at the
// container URL:
//
//	ch, err := testinfra.NewClickHouseContainer(ctx)
//	require.NoError(t, err)
//	defer testinfra.CleanupContainer(t, ctx, ch)
//	require.NoError(t, ch.Exec(ctx, testinfra.EventsTableDDL))
package testinfra
