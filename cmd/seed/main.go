package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ucampus/portal-academico-api/internal/models"
	"github.com/ucampus/portal-academico-api/internal/repository"
	"github.com/ucampus/portal-academico-api/pkg/config"
	"github.com/ucampus/portal-academico-api/pkg/database"
)

func clock(s string) models.ClockMinutes {
	cm, err := models.ParseClock(s)
	if err != nil {
		log.Fatalf("invalid clock value %q: %v", s, err)
	}
	return cm
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	repo := repository.NewCourseRepository(db)

	courses := []models.Course{
		{
			Code:      "MAT101",
			Name:      "Matemáticas I",
			Credits:   4,
			Capacity:  30,
			StartTime: clock("09:00"),
			EndTime:   clock("11:00"),
			Active:    true,
		},
		{
			Code:      "FIS201",
			Name:      "Física General",
			Credits:   3,
			Capacity:  25,
			StartTime: clock("11:30"),
			EndTime:   clock("13:00"),
			Active:    true,
		},
		{
			Code:      "PROG301",
			Name:      "Programación Avanzada",
			Credits:   5,
			Capacity:  20,
			StartTime: clock("14:00"),
			EndTime:   clock("16:00"),
			Active:    true,
		},
	}

	for i := range courses {
		course := courses[i]
		exists, err := repo.ExistsByCode(ctx, course.Code, "")
		if err != nil {
			log.Fatalf("failed to check course %s: %v", course.Code, err)
		}
		if exists {
			fmt.Printf("course %s already exists, skipping\n", course.Code)
			continue
		}
		if err := repo.Create(ctx, &course); err != nil {
			log.Fatalf("failed to create course %s: %v", course.Code, err)
		}
		fmt.Printf("created course %s (%s)\n", course.Code, course.Name)
	}

	fmt.Println("seed complete")
}
