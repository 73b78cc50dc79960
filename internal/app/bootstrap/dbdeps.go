// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// rt is allocated by ConnectDB and filled in by Startup, so the services
// and background workers it builds are shared with BuildHandler and torn
// down by Shutdown even though the hooks receive DBDeps by value.
type DBDeps struct {
	StudyHubMongoClient   *mongo.Client
	StudyHubMongoDatabase *mongo.Database

	rt *runtimeState
}
