package test

import (
	"net/http/httptest"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/celestiaorg/jobdesk/internal/api/v1/client"
	"github.com/celestiaorg/jobdesk/internal/logger"
)

// testClientTimeout is the timeout for test API client requests
const testClientTimeout = 5 * time.Second

// SetupServer serves the suite backend over HTTP and points a real API client at it
func SetupServer(suite *Suite) {
	suite.App = fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	suite.App.Use(logger.APILogger())
	suite.Backend.Register(suite.App)

	// Create test server using adaptor to convert Fiber app to http.Handler
	suite.Server = httptest.NewServer(adaptor.FiberApp(suite.App))

	c, err := client.NewClient(&client.Options{
		BaseURL: suite.Server.URL + APIPrefix,
		Timeout: testClientTimeout,
		Metrics: suite.Metrics,
	})
	suite.Require().NoError(err, "Failed to create API client")
	suite.APIClient = c

	// held requests must be released before Close can drain the server
	suite.addCleanup(func() {
		suite.Backend.releaseAll()
		suite.Server.Close()
	})
}
