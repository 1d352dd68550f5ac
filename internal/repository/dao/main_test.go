package dao

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Set by TestMain when Docker is reachable; integration tests skip otherwise.
var (
	testDB    *gorm.DB
	testMongo *mongo.Client
)

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	if os.Getenv("SKIP_DOCKER_TESTS") != "" {
		return m.Run()
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Printf("dockertest unavailable, skipping integration tests: %v", err)
		return m.Run()
	}
	if err = pool.Client.Ping(); err != nil {
		log.Printf("docker not reachable, skipping integration tests: %v", err)
		return m.Run()
	}
	pool.MaxWait = 90 * time.Second

	pg, err := startPostgres(pool)
	if err != nil {
		log.Printf("postgres container failed: %v", err)
		return m.Run()
	}
	defer purge(pool, pg)

	mg, err := startMongo(pool)
	if err != nil {
		log.Printf("mongo container failed: %v", err)
	} else {
		defer purge(pool, mg)
	}

	return m.Run()
}

func startPostgres(pool *dockertest.Pool) (*dockertest.Resource, error) {
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=chat",
			"POSTGRES_PASSWORD=chat",
			"POSTGRES_DB=chat",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("postgres://chat:chat@%s/chat?sslmode=disable", resource.GetHostPort("5432/tcp"))
	err = pool.Retry(func() error {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Discard})
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err = sqlDB.Ping(); err != nil {
			return err
		}
		testDB = db
		return nil
	})
	if err != nil {
		purge(pool, resource)
		return nil, err
	}

	if err = InitTables(testDB); err != nil {
		purge(pool, resource)
		return nil, err
	}

	return resource, nil
}

func startMongo(pool *dockertest.Pool) (*dockertest.Resource, error) {
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mongo",
		Tag:        "7",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, err
	}

	uri := fmt.Sprintf("mongodb://%s", resource.GetHostPort("27017/tcp"))
	err = pool.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return err
		}
		if err = client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			return err
		}
		testMongo = client
		return nil
	})
	if err != nil {
		purge(pool, resource)
		return nil, err
	}

	return resource, nil
}

func purge(pool *dockertest.Pool, resource *dockertest.Resource) {
	if err := pool.Purge(resource); err != nil {
		log.Printf("could not purge %s: %v", resource.Container.Name, err)
	}
}

func requirePostgres(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() || testDB == nil {
		t.Skip("postgres integration test skipped")
	}

	return testDB
}

func requireMongo(t *testing.T) *mongo.Collection {
	t.Helper()
	if testing.Short() || testMongo == nil {
		t.Skip("mongo integration test skipped")
	}

	return testMongo.Database("chatapp_test").Collection(t.Name())
}
