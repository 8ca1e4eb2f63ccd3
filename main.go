package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"bug-tracker/backend/bugs-service/handlers"
	"bug-tracker/backend/bugs-service/logging"
	"bug-tracker/backend/bugs-service/middleware"
	"bug-tracker/backend/bugs-service/services"
	"bug-tracker/backend/bugs-service/utils"
	"bug-tracker/backend/bugs-service/workflow"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})
}

func main() {
	logging.InitLogger()

	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Bugs Service...")
	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Fatalf("Event ID: ENV_LOAD_ERROR, Description: Error loading .env file: %v", err)
	}

	mongoURI := os.Getenv("MONGO_URI")
	mongoDBName := os.Getenv("MONGO_DB_NAME")
	mongoCollectionName := os.Getenv("MONGO_COLLECTION")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bugsClient, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	defer bugsClient.Disconnect(ctx)

	if err := bugsClient.Ping(ctx, nil); err != nil {
		logging.Logger.Fatalf("Event ID: DB_PING_FAILED, Description: MongoDB connection ping error: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB at %s.", mongoURI)

	bugsCollection := bugsClient.Database(mongoDBName).Collection(mongoCollectionName)
	logging.Logger.Infof("Event ID: DB_COLLECTION_SET, Description: Using MongoDB collection: %s/%s", mongoDBName, mongoCollectionName)

	labels := workflow.DefaultLabels()
	if mapping := os.Getenv("STATUS_LABELS"); mapping != "" {
		labels, err = workflow.ParseLabelTable(mapping)
		if err != nil {
			logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: Invalid STATUS_LABELS: %v", err)
		}
	}

	engine := workflow.NewEngine(workflow.Config{
		RequireAssignees: os.Getenv("REQUIRE_ASSIGNEES") != "false",
	})

	httpClient := utils.NewHTTPClient()

	var userClient *services.UserClient
	if usersURL := os.Getenv("USERS_SERVICE_URL"); usersURL != "" {
		userClient = services.NewUserClient(usersURL, httpClient, newBreaker("UsersServiceCB"))
	}
	var notifier *services.Notifier
	if notificationsURL := os.Getenv("NOTIFICATIONS_SERVICE_URL"); notificationsURL != "" {
		notifier = services.NewNotifier(notificationsURL, httpClient, newBreaker("NotificationsServiceCB"))
	}

	bugService := services.NewBugService(bugsCollection, engine, labels, userClient, notifier)
	bugHandler := handlers.NewBugHandler(bugService, labels)

	r := mux.NewRouter()

	r.HandleFunc("/api/bugs", bugHandler.CreateBug).Methods(http.MethodPost)
	r.HandleFunc("/api/bugs", bugHandler.GetBugs).Methods(http.MethodGet)
	r.HandleFunc("/api/bugs/dashboard-data", bugHandler.GetAdminDashboardData).Methods(http.MethodGet)
	r.HandleFunc("/api/bugs/user-dashboard-data", bugHandler.GetUserDashboardData).Methods(http.MethodGet)
	r.HandleFunc("/api/bugs/{id}", bugHandler.GetBugByID).Methods(http.MethodGet)
	r.HandleFunc("/api/bugs/{id}", bugHandler.UpdateBug).Methods(http.MethodPut)
	r.HandleFunc("/api/bugs/{id}", bugHandler.DeleteBug).Methods(http.MethodDelete)
	r.HandleFunc("/api/bugs/{id}/status", bugHandler.UpdateBugStatus).Methods(http.MethodPut)
	r.HandleFunc("/api/bugs/{id}/checklist", bugHandler.UpdateBugChecklist).Methods(http.MethodPut)

	protected := middleware.JWTAuthMiddleware(r)
	corsRouter := enableCORS(protected)

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: SERVER_PORT is not set in the environment variables.")
	}

	serverAddress := fmt.Sprintf(":%s", serverPort)
	logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", serverAddress)

	if err := http.ListenAndServe(serverAddress, corsRouter); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
	}
}
