package app

import (
	"fmt"

	groupHTTP "github.com/allisson/classhub/internal/group/http"
	groupRepository "github.com/allisson/classhub/internal/group/repository"
	groupUsecase "github.com/allisson/classhub/internal/group/usecase"
)

// GroupRepository returns the group repository based on database driver.
func (c *Container) GroupRepository() (groupUsecase.GroupRepository, error) {
	var err error
	c.groupRepoInit.Do(func() {
		c.groupRepo, err = c.initGroupRepository()
		if err != nil {
			c.initErrors["groupRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["groupRepo"]; exists {
		return nil, storedErr
	}
	return c.groupRepo, nil
}

// GroupUseCase returns the group use case instance.
func (c *Container) GroupUseCase() (groupUsecase.UseCase, error) {
	var err error
	c.groupUseCaseInit.Do(func() {
		c.groupUseCase, err = c.initGroupUseCase()
		if err != nil {
			c.initErrors["groupUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["groupUseCase"]; exists {
		return nil, storedErr
	}
	return c.groupUseCase, nil
}

// GroupHandler returns the HTTP handler for group operations.
func (c *Container) GroupHandler() (*groupHTTP.GroupHandler, error) {
	var err error
	c.groupHandlerInit.Do(func() {
		var useCase groupUsecase.UseCase
		useCase, err = c.GroupUseCase()
		if err != nil {
			c.initErrors["groupHandler"] = err
			return
		}
		c.groupHandler = groupHTTP.NewGroupHandler(useCase, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["groupHandler"]; exists {
		return nil, storedErr
	}
	return c.groupHandler, nil
}

// initGroupRepository creates the group repository based on the database driver.
func (c *Container) initGroupRepository() (groupUsecase.GroupRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for group repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return groupRepository.NewPostgreSQLGroupRepository(db), nil
	case "mysql":
		return groupRepository.NewMySQLGroupRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initGroupUseCase creates the group use case with all its dependencies.
func (c *Container) initGroupUseCase() (groupUsecase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for group use case: %w", err)
	}

	groupRepo, err := c.GroupRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get group repository for group use case: %w", err)
	}

	publisher, err := c.Publisher()
	if err != nil {
		return nil, fmt.Errorf("failed to get publisher for group use case: %w", err)
	}

	return groupUsecase.NewGroupUseCase(txManager, groupRepo, publisher), nil
}
