package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"taskhub/internal/apperr"
	"taskhub/internal/event"
	"taskhub/internal/model"
	"taskhub/internal/repository"
	"taskhub/internal/service"
	"taskhub/pkg/config"
	"taskhub/pkg/db"
	"taskhub/pkg/logger"
	"taskhub/pkg/mq"
	"taskhub/pkg/redis"
)

type stores struct {
	users    service.UserStore
	tasks    service.TaskStore
	projects service.ProjectStore
	teams    service.TeamStore
	close    func()
}

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting taskhub demo...",
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Bool("mq_enabled", cfg.MQ.Enabled),
	)

	ctx := context.Background()

	st, err := buildStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to init storage", zap.Error(err))
	}
	defer st.close()

	var events event.Publisher = event.Nop{}
	if cfg.MQ.Enabled {
		pub, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Fatal("Failed to init publisher", zap.Error(err))
		}
		defer pub.Close()
		events = pub
		log.Info("Event publisher connected", zap.String("mq_url", cfg.MQ.URL))
	}

	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Info("Metrics server starting", zap.String("addr", cfg.Metrics.Addr))
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				log.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	deps := service.Deps{Events: events, Log: log}
	userSvc := service.NewUserService(st.users, service.BcryptHasher{}, deps)
	taskSvc := service.NewTaskService(st.tasks, st.users, st.projects, deps)
	projectSvc := service.NewProjectService(st.projects, st.users, st.teams, st.tasks, deps)
	teamSvc := service.NewTeamService(st.teams, st.users, deps)

	if err := runScenario(ctx, log, userSvc, taskSvc, projectSvc, teamSvc); err != nil {
		log.Fatal("Scenario failed", zap.Error(err))
	}
	log.Info("Scenario completed successfully")
}

func buildStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := db.NewConnection(cfg.DB, log)
		if err != nil {
			return nil, err
		}
		users := repository.NewPostgresStore[*model.User](pool, "user", log)
		tasks := repository.NewPostgresStore[*model.Task](pool, "task", log)
		projects := repository.NewPostgresStore[*model.Project](pool, "project", log)
		teams := repository.NewPostgresStore[*model.Team](pool, "team", log)
		for _, ensure := range []func(context.Context) error{
			users.EnsureSchema, tasks.EnsureSchema, projects.EnsureSchema, teams.EnsureSchema,
		} {
			if err := ensure(ctx); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return &stores{
			users:    users,
			tasks:    tasks,
			projects: projects,
			teams:    teams,
			close:    pool.Close,
		}, nil

	case config.BackendRedis:
		client, err := redis.NewClient(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return &stores{
			users:    repository.NewRedisStore[*model.User](client, "user", log),
			tasks:    repository.NewRedisStore[*model.Task](client, "task", log),
			projects: repository.NewRedisStore[*model.Project](client, "project", log),
			teams:    repository.NewRedisStore[*model.Team](client, "team", log),
			close:    func() { _ = client.Close() },
		}, nil

	default:
		return &stores{
			users:    repository.NewMemoryStore[*model.User]("user"),
			tasks:    repository.NewMemoryStore[*model.Task]("task"),
			projects: repository.NewMemoryStore[*model.Project]("project"),
			teams:    repository.NewMemoryStore[*model.Team]("team"),
			close:    func() {},
		}, nil
	}
}

// runScenario walks the full lifecycle once: accounts, team, project with a
// milestone, and a task driven through the status state machine, including
// the transitions that must be rejected.
func runScenario(
	ctx context.Context,
	log *zap.Logger,
	users *service.UserService,
	tasks *service.TaskService,
	projects *service.ProjectService,
	teams *service.TeamService,
) error {
	alice, err := users.CreateUser(ctx, "alice", "alice@example.com", "secret123", model.RoleManager)
	if err != nil {
		return fmt.Errorf("create alice: %w", err)
	}
	bob, err := users.CreateUser(ctx, "bob", "bob@example.com", "secret123", model.RoleUser)
	if err != nil {
		return fmt.Errorf("create bob: %w", err)
	}
	log.Info("Users created", zap.String("alice", alice.ID), zap.String("bob", bob.ID))

	team, err := teams.CreateTeam(ctx, "Core Team", "Product engineering", alice.ID)
	if err != nil {
		return fmt.Errorf("create team: %w", err)
	}
	if _, err := teams.AddMember(ctx, team.ID, bob.ID, model.TeamRoleMember); err != nil {
		return fmt.Errorf("add member: %w", err)
	}

	project, err := projects.CreateProject(ctx, "P1", "First delivery", alice.ID, team.ID)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	milestone, err := projects.AddMilestone(ctx, project.ID, "Beta", "Feature-complete beta",
		time.Now().UTC().Add(14*24*time.Hour), alice.ID)
	if err != nil {
		return fmt.Errorf("add milestone: %w", err)
	}

	task, err := tasks.CreateTask(ctx, service.CreateTaskInput{
		Title:      "T1",
		AssigneeID: alice.ID,
		ProjectID:  project.ID,
		Priority:   model.PriorityHigh,
	})
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	if _, err := tasks.UpdateStatus(ctx, task.ID, model.TaskStatusInProgress, alice.ID); err != nil {
		return fmt.Errorf("todo -> in_progress: %w", err)
	}
	// Skipping review must be rejected by the state machine.
	if _, err := tasks.UpdateStatus(ctx, task.ID, model.TaskStatusDone, alice.ID); !apperr.IsInvalidTransition(err) {
		return fmt.Errorf("in_progress -> done should be invalid, got %v", err)
	}
	if _, err := tasks.UpdateStatus(ctx, task.ID, model.TaskStatusInReview, alice.ID); err != nil {
		return fmt.Errorf("in_progress -> in_review: %w", err)
	}
	if _, err := tasks.UpdateStatus(ctx, task.ID, model.TaskStatusDone, alice.ID); err != nil {
		return fmt.Errorf("in_review -> done: %w", err)
	}
	if _, err := tasks.UpdateStatus(ctx, task.ID, model.TaskStatusTodo, alice.ID); !apperr.IsInvalidTransition(err) {
		return fmt.Errorf("done is terminal, got %v", err)
	}
	log.Info("State machine walk complete", zap.String("task_id", task.ID))

	if _, err := tasks.AddComment(ctx, task.ID, bob.ID, "Shipped in the beta build."); err != nil {
		return fmt.Errorf("add comment: %w", err)
	}
	if err := projects.CompleteMilestone(ctx, project.ID, milestone.ID); err != nil {
		return fmt.Errorf("complete milestone: %w", err)
	}

	stats, err := projects.Statistics(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("project statistics: %w", err)
	}
	log.Info("Project statistics",
		zap.Int("tasks_total", stats.TasksTotal),
		zap.Int("progress_percent", stats.ProgressPercent),
		zap.Int("milestones_percent", stats.MilestonesPercent),
	)

	if _, err := users.Authenticate(ctx, "alice", "wrong"); !apperr.IsAuthentication(err) {
		return fmt.Errorf("bad password should fail authentication, got %v", err)
	}
	if _, err := users.Authenticate(ctx, "alice@example.com", "secret123"); err != nil {
		return fmt.Errorf("authenticate by email: %w", err)
	}
	return nil
}
