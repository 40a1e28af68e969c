// Package catalog ведёт справочники площадки: пользователей, категории и товары.
package catalog

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/command"
	"github.com/vladislavdragonenkov/b2b-trading/internal/service/validation"
)

// Service выполняет команды над справочниками.
type Service struct {
	runner *command.Runner
	hasher PasswordHasher
	logger *log.Entry
}

// NewService создаёт сервис каталога. Если hasher == nil, используется bcrypt.
func NewService(runner *command.Runner, hasher PasswordHasher, logger *log.Entry) *Service {
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	if logger == nil {
		logger = log.New().WithField("component", "catalog")
	}
	return &Service{runner: runner, hasher: hasher, logger: logger}
}

func idRule(field string, id int64) func() error {
	return func() error {
		var p validation.Problems
		p.PositiveID(field, id)
		return p.Err()
	}
}

// CreateUser регистрирует пользователя с уникальным email и хешем пароля.
func (s *Service) CreateUser(ctx context.Context, cmd CreateUserCommand) (domain.User, error) {
	return command.Execute(ctx, s.runner, "create_user", cmd.validate,
		func(ctx context.Context, uow domain.UnitOfWork) (domain.User, error) {
			if err := validation.EnsureEmailFree(ctx, uow, cmd.Email, 0); err != nil {
				return domain.User{}, err
			}
			hash, err := s.hasher.Hash(cmd.Password)
			if err != nil {
				return domain.User{}, domain.Internal(err, "hash password")
			}

			user := domain.User{
				Name:          cmd.Name,
				Role:          cmd.Role,
				Type:          cmd.Type,
				Email:         cmd.Email,
				Phone:         cmd.Phone,
				UNP:           cmd.UNP,
				OKPO:          cmd.OKPO,
				LegalAddress:  cmd.LegalAddress,
				ActualAddress: cmd.ActualAddress,
				BankName:      cmd.BankName,
				BankAccount:   cmd.BankAccount,
				PasswordHash:  hash,
			}
			if err := uow.Users().Add(ctx, &user); err != nil {
				return domain.User{}, err
			}

			s.logger.WithFields(log.Fields{"user_id": user.ID, "role": user.Role}).Info("user created")
			return user, nil
		})
}

// GetUser возвращает пользователя по ID.
func (s *Service) GetUser(ctx context.Context, id int64) (domain.User, error) {
	return command.Query(ctx, s.runner, "get_user", idRule("id", id),
		func(ctx context.Context, repos domain.Repositories) (domain.User, error) {
			return validation.RequireUser(ctx, repos, id)
		})
}

// ListUsers возвращает страницу пользователей по роли, типу и строке поиска.
func (s *Service) ListUsers(ctx context.Context, filter domain.UserFilter) (UserPage, error) {
	return command.Query(ctx, s.runner, "list_users",
		func() error {
			var p validation.Problems
			if filter.Role != "" {
				p.Role("role", filter.Role)
			}
			if filter.Type != "" {
				p.UserType("type", filter.Type)
			}
			p.Search("search", filter.Search)
			p.Page(filter.Page)
			return p.Err()
		},
		func(ctx context.Context, repos domain.Repositories) (UserPage, error) {
			users, err := repos.Users().Find(ctx, filter)
			if err != nil {
				return UserPage{}, err
			}
			total, err := repos.Users().Count(ctx, filter)
			if err != nil {
				return UserPage{}, err
			}
			return UserPage{Users: users, TotalCount: total, Page: filter.Page}, nil
		})
}

// UpdateUser меняет заданные поля пользователя. Email остаётся уникальным.
func (s *Service) UpdateUser(ctx context.Context, cmd UpdateUserCommand) (domain.User, error) {
	return command.Execute(ctx, s.runner, "update_user", cmd.validate,
		func(ctx context.Context, uow domain.UnitOfWork) (domain.User, error) {
			user, err := validation.RequireUser(ctx, uow, cmd.ID)
			if err != nil {
				return domain.User{}, err
			}
			if cmd.Email != "" {
				if err := validation.EnsureEmailFree(ctx, uow, cmd.Email, user.ID); err != nil {
					return domain.User{}, err
				}
			}
			cmd.apply(&user)
			if cmd.Password != "" {
				hash, err := s.hasher.Hash(cmd.Password)
				if err != nil {
					return domain.User{}, domain.Internal(err, "hash password")
				}
				user.PasswordHash = hash
			}
			if err := uow.Users().Update(ctx, &user); err != nil {
				return domain.User{}, err
			}
			return user, nil
		})
}

// DeleteUser удаляет пользователя без заказов и собственных прайс-листов.
// Допуски пользователя к чужим прайс-листам удаляются вместе с ним.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	_, err := command.Execute(ctx, s.runner, "delete_user", idRule("id", id),
		func(ctx context.Context, uow domain.UnitOfWork) (struct{}, error) {
			user, err := validation.RequireUser(ctx, uow, id)
			if err != nil {
				return struct{}{}, err
			}
			ordered, err := uow.Orders().Exists(ctx, domain.OrderFilter{CustomerID: user.ID})
			if err != nil {
				return struct{}{}, err
			}
			if ordered {
				return struct{}{}, domain.Conflictf("user %d has orders", user.ID)
			}
			owns, err := uow.PriceLists().Exists(ctx, domain.PriceListFilter{SellerID: user.ID})
			if err != nil {
				return struct{}{}, err
			}
			if owns {
				return struct{}{}, domain.Conflictf("user %d owns price lists", user.ID)
			}

			grants, err := uow.PriceListBuyers().Find(ctx, domain.PriceListBuyerFilter{BuyerID: user.ID})
			if err != nil {
				return struct{}{}, err
			}
			for _, grant := range grants {
				if err := uow.PriceListBuyers().Delete(ctx, grant.Key()); err != nil {
					return struct{}{}, err
				}
			}
			if err := uow.Users().Delete(ctx, user.ID); err != nil {
				return struct{}{}, err
			}

			s.logger.WithFields(log.Fields{"user_id": user.ID, "grants": len(grants)}).Info("user deleted")
			return struct{}{}, nil
		})
	return err
}

// VerifyCredentials возвращает пользователя, если пароль совпадает с сохранённым хешем.
// Неизвестный email и неверный пароль дают одну и ту же ошибку.
func (s *Service) VerifyCredentials(ctx context.Context, email, password string) (domain.User, error) {
	return command.Query(ctx, s.runner, "verify_credentials",
		func() error {
			var p validation.Problems
			p.Email("email", email)
			if password == "" {
				p.Addf("password is required")
			}
			return p.Err()
		},
		func(ctx context.Context, repos domain.Repositories) (domain.User, error) {
			users, err := repos.Users().Find(ctx, domain.UserFilter{Email: email})
			if err != nil {
				return domain.User{}, err
			}
			if len(users) == 0 || s.hasher.Compare(users[0].PasswordHash, password) != nil {
				return domain.User{}, domain.Validationf("invalid email or password")
			}
			return users[0], nil
		})
}

// GetCategory возвращает категорию по ID.
func (s *Service) GetCategory(ctx context.Context, id int64) (domain.Category, error) {
	return command.Query(ctx, s.runner, "get_category", idRule("id", id),
		func(ctx context.Context, repos domain.Repositories) (domain.Category, error) {
			return validation.RequireCategory(ctx, repos, id)
		})
}

// ListCategories возвращает страницу категорий.
func (s *Service) ListCategories(ctx context.Context, page domain.Page) (CategoryPage, error) {
	return command.Query(ctx, s.runner, "list_categories",
		func() error {
			var p validation.Problems
			p.Page(page)
			return p.Err()
		},
		func(ctx context.Context, repos domain.Repositories) (CategoryPage, error) {
			filter := domain.CategoryFilter{Page: page}
			categories, err := repos.Categories().Find(ctx, filter)
			if err != nil {
				return CategoryPage{}, err
			}
			total, err := repos.Categories().Count(ctx, filter)
			if err != nil {
				return CategoryPage{}, err
			}
			return CategoryPage{Categories: categories, TotalCount: total, Page: page}, nil
		})
}

// CreateCategory создаёт категорию с уникальным именем.
func (s *Service) CreateCategory(ctx context.Context, cmd CategoryCommand) (domain.Category, error) {
	return command.Execute(ctx, s.runner, "create_category",
		func() error { return cmd.validate(false) },
		func(ctx context.Context, uow domain.UnitOfWork) (domain.Category, error) {
			if err := validation.EnsureCategoryNameFree(ctx, uow, cmd.Name, 0); err != nil {
				return domain.Category{}, err
			}
			category := domain.Category{Name: cmd.Name, Description: cmd.Description, ImageURL: cmd.ImageURL}
			if err := uow.Categories().Add(ctx, &category); err != nil {
				return domain.Category{}, err
			}
			return category, nil
		})
}

// UpdateCategory перезаписывает категорию.
func (s *Service) UpdateCategory(ctx context.Context, cmd CategoryCommand) (domain.Category, error) {
	return command.Execute(ctx, s.runner, "update_category",
		func() error { return cmd.validate(true) },
		func(ctx context.Context, uow domain.UnitOfWork) (domain.Category, error) {
			category, err := validation.RequireCategory(ctx, uow, cmd.ID)
			if err != nil {
				return domain.Category{}, err
			}
			if err := validation.EnsureCategoryNameFree(ctx, uow, cmd.Name, category.ID); err != nil {
				return domain.Category{}, err
			}
			category.Name = cmd.Name
			category.Description = cmd.Description
			category.ImageURL = cmd.ImageURL
			if err := uow.Categories().Update(ctx, &category); err != nil {
				return domain.Category{}, err
			}
			return category, nil
		})
}

// DeleteCategory удаляет категорию, на которую не ссылается ни один товар.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	_, err := command.Execute(ctx, s.runner, "delete_category", idRule("id", id),
		func(ctx context.Context, uow domain.UnitOfWork) (struct{}, error) {
			category, err := validation.RequireCategory(ctx, uow, id)
			if err != nil {
				return struct{}{}, err
			}
			n, err := uow.Products().Count(ctx, domain.ProductFilter{CategoryID: category.ID})
			if err != nil {
				return struct{}{}, err
			}
			if n > 0 {
				return struct{}{}, domain.Conflictf("category %d is used by %d products", category.ID, n)
			}
			return struct{}{}, uow.Categories().Delete(ctx, category.ID)
		})
	return err
}

// CreateProduct создаёт товар с уникальным артикулом.
func (s *Service) CreateProduct(ctx context.Context, cmd ProductCommand) (domain.Product, error) {
	return command.Execute(ctx, s.runner, "create_product",
		func() error { return cmd.validate(false) },
		func(ctx context.Context, uow domain.UnitOfWork) (domain.Product, error) {
			if err := s.checkProduct(ctx, uow, cmd, 0); err != nil {
				return domain.Product{}, err
			}
			var product domain.Product
			cmd.apply(&product)
			if err := uow.Products().Add(ctx, &product); err != nil {
				return domain.Product{}, err
			}

			s.logger.WithFields(log.Fields{"product_id": product.ID, "sku": product.SKU}).Info("product created")
			return product, nil
		})
}

// UpdateProduct перезаписывает товар. Цены в уже оформленных заказах не меняются.
func (s *Service) UpdateProduct(ctx context.Context, cmd ProductCommand) (domain.Product, error) {
	return command.Execute(ctx, s.runner, "update_product",
		func() error { return cmd.validate(true) },
		func(ctx context.Context, uow domain.UnitOfWork) (domain.Product, error) {
			product, err := validation.RequireProduct(ctx, uow, cmd.ID)
			if err != nil {
				return domain.Product{}, err
			}
			if err := s.checkProduct(ctx, uow, cmd, product.ID); err != nil {
				return domain.Product{}, err
			}
			cmd.apply(&product)
			if err := uow.Products().Update(ctx, &product); err != nil {
				return domain.Product{}, err
			}
			return product, nil
		})
}

func (s *Service) checkProduct(ctx context.Context, uow domain.UnitOfWork, cmd ProductCommand, excludeID int64) error {
	if cmd.CategoryID != nil {
		if _, err := validation.RequireCategory(ctx, uow, *cmd.CategoryID); err != nil {
			return err
		}
	}
	return validation.EnsureSKUFree(ctx, uow, cmd.SKU, excludeID)
}

// DeleteProduct удаляет товар, который не входит ни в заказы, ни в прайс-листы.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	_, err := command.Execute(ctx, s.runner, "delete_product", idRule("id", id),
		func(ctx context.Context, uow domain.UnitOfWork) (struct{}, error) {
			product, err := validation.RequireProduct(ctx, uow, id)
			if err != nil {
				return struct{}{}, err
			}
			ordered, err := uow.OrderItems().Exists(ctx, domain.OrderItemFilter{ProductID: product.ID})
			if err != nil {
				return struct{}{}, err
			}
			if ordered {
				return struct{}{}, domain.Conflictf("product %d is referenced by orders", product.ID)
			}
			listed, err := uow.PriceListProducts().Exists(ctx, domain.PriceListProductFilter{ProductID: product.ID})
			if err != nil {
				return struct{}{}, err
			}
			if listed {
				return struct{}{}, domain.Conflictf("product %d is referenced by price lists", product.ID)
			}
			return struct{}{}, uow.Products().Delete(ctx, product.ID)
		})
	return err
}

// GetProduct возвращает товар по ID.
func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	return command.Query(ctx, s.runner, "get_product", idRule("id", id),
		func(ctx context.Context, repos domain.Repositories) (domain.Product, error) {
			return validation.RequireProduct(ctx, repos, id)
		})
}

// ListProducts возвращает страницу товаров по категории и строке поиска.
// Несуществующая категория даёт NotFound, а не пустую страницу.
func (s *Service) ListProducts(ctx context.Context, filter domain.ProductFilter) (ProductPage, error) {
	return command.Query(ctx, s.runner, "list_products",
		func() error {
			var p validation.Problems
			if filter.CategoryID < 0 {
				p.PositiveID("category_id", filter.CategoryID)
			}
			p.Search("search", filter.Search)
			p.Page(filter.Page)
			return p.Err()
		},
		func(ctx context.Context, repos domain.Repositories) (ProductPage, error) {
			if filter.CategoryID != 0 {
				if _, err := validation.RequireCategory(ctx, repos, filter.CategoryID); err != nil {
					return ProductPage{}, err
				}
			}
			products, err := repos.Products().Find(ctx, filter)
			if err != nil {
				return ProductPage{}, err
			}
			total, err := repos.Products().Count(ctx, filter)
			if err != nil {
				return ProductPage{}, err
			}
			return ProductPage{Products: products, TotalCount: total, Page: filter.Page}, nil
		})
}
