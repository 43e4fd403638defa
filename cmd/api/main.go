package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medibot-backend/internal/ambulance"
	"medibot-backend/internal/auth"
	"medibot-backend/internal/billing"
	"medibot-backend/internal/bloodbank"
	"medibot-backend/internal/booking"
	"medibot-backend/internal/cache"
	"medibot-backend/internal/chat"
	"medibot-backend/internal/config"
	"medibot-backend/internal/db"
	"medibot-backend/internal/departments"
	"medibot-backend/internal/doctors"
	"medibot-backend/internal/feedback"
	"medibot-backend/internal/healthpackage"
	"medibot-backend/internal/insurance"
	"medibot-backend/internal/lab"
	"medibot-backend/internal/medicine"
	appmw "medibot-backend/internal/middleware"
	"medibot-backend/internal/navigation"
	"medibot-backend/internal/reminder"
	"medibot-backend/internal/scheduling"
	"medibot-backend/internal/transport"
	"medibot-backend/internal/users"
	"medibot-backend/internal/vaccination"
	"medibot-backend/internal/validation"
	"medibot-backend/internal/videoconsult"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("startup: config load failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.JWTSecret == "" {
		log.Error("startup: JWT_SECRET is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	client, cols, err := db.Connect(connectCtx, cfg.MongoURI, cfg.MongoDB)
	cancel()
	if err != nil {
		log.Error("startup: mongo connect failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		log.Error("startup: index creation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var store cache.Cache = cache.NewNoop()
	switch {
	case cfg.RedisURL != "":
		redisCache, err := cache.NewRedisFromURL(cfg.RedisURL)
		if err != nil {
			log.Error("startup: redis url invalid", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn("startup: redis unreachable, caching disabled", slog.String("error", err.Error()))
		} else {
			store = redisCache
		}
	case cfg.RedisAddr != "":
		redisCache := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn("startup: redis unreachable, caching disabled", slog.String("error", err.Error()))
		} else {
			store = redisCache
		}
	}

	tokens := &auth.Manager{
		Secret:    []byte(cfg.JWTSecret),
		AccessTTL: time.Duration(cfg.AccessTTLMinutes) * time.Minute,
		Issuer:    "medibot-backend",
	}
	val := validation.New()
	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second

	doctorStore := booking.NewDoctorStore(cols.Doctors)
	appointmentStore := booking.NewAppointmentStore(cols.Appointments)
	allocator := scheduling.NewAllocator(cols.SlotCounters)
	bookingService := booking.NewService(doctorStore, appointmentStore, allocator)
	bookingHandler := booking.NewHandler(bookingService, val, log, store, cacheTTL)

	chatStore := chat.NewStore(cols.Chats, cfg.ChatHistoryLimit)
	llm := chat.NewOllamaClient(cfg.OllamaURL, cfg.OllamaModel)
	chatService := chat.NewService(chat.ServiceParams{
		Store:        chatStore,
		LLM:          llm,
		Extractor:    chat.NewKeywordExtractor(),
		Booking:      bookingService,
		Doctors:      doctorStore,
		Insurance:    insurance.NewSnapshot(cols.Insurance),
		Names:        userNames{col: cols.Users},
		Log:          log,
		HospitalName: cfg.HospitalName,
		Helpline:     cfg.HelplineNumber,
		Timezone:     cfg.Timezone,
	})
	chatHandler := chat.NewHandler(chatService, chatStore, val, log)

	usersHandler := users.NewHandler(cols.Users, val, log, tokens)
	doctorsHandler := doctors.NewHandler(cols.Doctors, cols.Appointments, cols.Users, val, log)
	labHandler := lab.NewHandler(cols.LabReports, val, log)
	bloodHandler := bloodbank.NewHandler(cols.BloodInventory, cols.BloodRequests, val, log)
	ambulanceHandler := ambulance.NewHandler(cols.Ambulances, cols.AmbulanceRequests, val, log)
	vaccinationHandler := vaccination.NewHandler(cols.Vaccinations, cols.VaccinationAppointments, val, log)
	videoHandler := videoconsult.NewHandler(cols.VideoConsultations, cols.Doctors, val, log, cfg.MeetingHost)
	billingHandler := billing.NewHandler(cols.BillEstimates, val, log)
	feedbackHandler := feedback.NewHandler(cols.Feedback, val, log)
	departmentsHandler := departments.NewHandler(cols.Departments, val, log)
	medicineHandler := medicine.NewHandler(cols.Medicines, val, log)
	navigationHandler := navigation.NewHandler(cols.NavigationNodes, log)
	insuranceHandler := insurance.NewHandler(cols.Insurance, val, log)
	packagesHandler := healthpackage.NewHandler(cols.HealthPackages, val, log)

	notifier := reminder.NewLogNotifier(log)
	sweeper := reminder.NewSweeper([]reminder.Source{
		reminder.NewMongoSource(cols.Appointments, cols.Users, "appointment", cfg.Timezone),
		reminder.NewMongoSource(cols.VaccinationAppointments, cols.Users, "vaccination appointment", cfg.Timezone),
		reminder.NewMongoSource(cols.VideoConsultations, cols.Users, "video consultation", cfg.Timezone),
	}, chatStore, notifier, log, cfg.ReminderInterval)
	go sweeper.Run(ctx)

	chatLimiter := appmw.NewRateLimiter(cfg.RateLimitChat, time.Duration(cfg.RateLimitWindowSec)*time.Second)
	bookingLimiter := appmw.NewRateLimiter(cfg.RateLimitBooking, time.Duration(cfg.RateLimitWindowSec)*time.Second)

	buildRoutes := func(r chi.Router) {
		r.Post("/auth/register", usersHandler.Register)
		r.Post("/auth/login", usersHandler.Login)

		r.Get("/doctors", doctorsHandler.List)
		r.Get("/doctors/{id}", doctorsHandler.Get)
		r.Get("/doctors/{id}/availability", bookingHandler.DoctorAvailability)
		r.Get("/departments", departmentsHandler.List)
		r.Get("/insurance", insuranceHandler.List)
		r.Get("/health-packages", packagesHandler.List)
		r.Get("/medicines", medicineHandler.Search)
		r.Get("/navigation", navigationHandler.List)
		r.Get("/navigation/directions", navigationHandler.Directions)
		r.Get("/vaccinations", vaccinationHandler.Catalog)
		r.Get("/blood-bank/inventory", bloodHandler.Inventory)

		r.Group(func(r chi.Router) {
			r.Use(appmw.RequireUser(tokens))

			r.Get("/users/me", usersHandler.Profile)
			r.Put("/users/me", usersHandler.UpdateProfile)

			r.Group(func(r chi.Router) {
				r.Use(bookingLimiter.Middleware)
				r.Post("/appointments", bookingHandler.Create)
			})
			r.Get("/appointments", bookingHandler.List)
			r.Post("/appointments/{id}/cancel", bookingHandler.Cancel)
			r.Put("/appointments/{id}/reschedule", bookingHandler.Reschedule)
			r.Get("/appointments/{id}/wait", bookingHandler.WaitTime)

			r.Group(func(r chi.Router) {
				r.Use(chatLimiter.Middleware)
				r.Post("/chat", chatHandler.Send)
			})
			r.Get("/chat/history", chatHandler.History)
			r.Delete("/chat/history", chatHandler.Clear)
			r.Put("/chat/language", chatHandler.UpdateLanguage)

			r.Get("/lab/reports", labHandler.List)
			r.Post("/lab/reports/{reportId}/otp", labHandler.RequestOTP)
			r.Post("/lab/reports/{reportId}/download", labHandler.Download)

			r.Post("/blood-bank/requests", bloodHandler.CreateRequest)
			r.Get("/blood-bank/requests", bloodHandler.ListRequests)

			r.Post("/ambulance/requests", ambulanceHandler.Dispatch)
			r.Get("/ambulance/requests", ambulanceHandler.ListRequests)
			r.Post("/ambulance/requests/{id}/cancel", ambulanceHandler.Cancel)

			r.Post("/vaccinations/appointments", vaccinationHandler.Book)
			r.Get("/vaccinations/appointments", vaccinationHandler.ListMine)
			r.Post("/vaccinations/appointments/{id}/cancel", vaccinationHandler.Cancel)

			r.Post("/video-consultations", videoHandler.Book)
			r.Get("/video-consultations", videoHandler.ListMine)
			r.Post("/video-consultations/{id}/cancel", videoHandler.Cancel)

			r.Post("/bills/estimates", billingHandler.Create)
			r.Get("/bills/estimates", billingHandler.ListMine)
			r.Get("/bills/estimates/{id}", billingHandler.Get)
			r.Put("/bills/estimates/{id}/status", billingHandler.UpdateStatus)

			r.Post("/feedback", feedbackHandler.Create)

			r.Route("/admin", func(r chi.Router) {
				r.Use(appmw.RequireAdmin())

				r.Get("/stats", doctorsHandler.AdminStats)

				r.Post("/doctors", doctorsHandler.AdminCreate)
				r.Put("/doctors/{id}", doctorsHandler.AdminUpdate)
				r.Delete("/doctors/{id}", doctorsHandler.AdminDelete)

				r.Get("/appointments", bookingHandler.AdminList)
				r.Put("/appointments/{id}/status", bookingHandler.AdminUpdateStatus)

				r.Post("/departments", departmentsHandler.AdminCreate)
				r.Put("/departments/{id}", departmentsHandler.AdminUpdate)
				r.Delete("/departments/{id}", departmentsHandler.AdminDelete)

				r.Post("/lab/reports", labHandler.AdminCreate)

				r.Put("/blood-bank/inventory", bloodHandler.AdminUpdateInventory)
				r.Post("/blood-bank/requests/{id}/fulfil", bloodHandler.AdminFulfil)

				r.Post("/ambulance/requests/{id}/complete", ambulanceHandler.AdminComplete)
				r.Post("/video-consultations/{id}/complete", videoHandler.AdminComplete)

				r.Put("/medicines", medicineHandler.AdminUpsert)
				r.Put("/insurance", insuranceHandler.AdminUpsert)
				r.Put("/health-packages", packagesHandler.AdminUpsert)

				r.Get("/feedback", feedbackHandler.AdminList)
				r.Get("/feedback/summary", feedbackHandler.AdminSummary)
				r.Post("/feedback/{id}/respond", feedbackHandler.AdminRespond)
			})
		})
	}

	router := chi.NewRouter()
	router.Use(appmw.RequestID())
	router.Use(appmw.Logger(log))
	router.Use(appmw.CORS(cfg.FrontendOrigin))

	router.Get("/health", healthHandler(client, llm, store))
	router.Route("/api", buildRoutes)
	router.Route("/api/v1", buildRoutes)

	server := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Chat requests wait on the LLM.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("startup: listening",
			slog.String("addr", cfg.ServerAddr),
			slog.String("env", cfg.Env),
			slog.String("db", cfg.MongoDB),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server: listen failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown: draining connections")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown: forced", slog.String("error", err.Error()))
	}
	log.Info("shutdown: complete")
}

// healthHandler reports the reachability of the backing services.
func healthHandler(client *mongo.Client, llm *chat.OllamaClient, store cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		mongoStatus := "up"
		if err := client.Ping(ctx, nil); err != nil {
			mongoStatus = "down"
		}

		ollamaStatus := "up"
		if err := llm.Health(ctx); err != nil {
			ollamaStatus = "down"
		}

		cacheStatus := "disabled"
		if redisCache, ok := store.(*cache.RedisCache); ok {
			cacheStatus = "up"
			if err := redisCache.Ping(ctx); err != nil {
				cacheStatus = "down"
			}
		}

		status := http.StatusOK
		if mongoStatus == "down" {
			status = http.StatusServiceUnavailable
		}
		transport.WriteJSON(w, status, map[string]interface{}{
			"success": mongoStatus == "up",
			"services": map[string]string{
				"mongo":  mongoStatus,
				"ollama": ollamaStatus,
				"cache":  cacheStatus,
			},
		})
	}
}

// userNames resolves display names for the chat auto-booking path.
type userNames struct {
	col *mongo.Collection
}

func (u userNames) Name(ctx context.Context, userID string) (string, error) {
	var doc struct {
		Name string `bson:"name"`
	}
	opts := options.FindOne().SetProjection(bson.M{"name": 1})
	if err := u.col.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&doc); err != nil {
		return "", err
	}
	return doc.Name, nil
}
