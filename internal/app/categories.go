package app

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"mcq-practice-service/internal/docstore"
	"mcq-practice-service/internal/domain"
)

// FetchCategories returns every category, unfiltered and in no particular order.
func (s *Service) FetchCategories(ctx context.Context) ([]domain.Category, error) {
	if s.cache != nil {
		return s.cache.Categories(ctx, s.loadCategories)
	}
	return s.loadCategories(ctx)
}

func (s *Service) loadCategories(ctx context.Context) ([]domain.Category, error) {
	docs, err := s.store.Query(ctx, categoriesCollection, docstore.Query{})
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	return decodeAll[domain.Category](docs, func(c *domain.Category, id string) { c.ID = id })
}

// GetCategory returns one category.
func (s *Service) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	doc, err := s.store.Get(ctx, categoriesCollection, id)
	if err != nil {
		return domain.Category{}, fmt.Errorf("get category: %w", err)
	}
	var cat domain.Category
	if err := doc.Decode(&cat); err != nil {
		return domain.Category{}, err
	}
	cat.ID = doc.ID
	return cat, nil
}

// SaveCategory creates or merge-updates a category. Concurrent admin edits are
// last-write-wins.
func (s *Service) SaveCategory(ctx context.Context, cat domain.Category) error {
	if strings.TrimSpace(cat.ID) == "" || strings.TrimSpace(cat.Name) == "" {
		return fmt.Errorf("save category: id and name required: %w", domain.ErrInvalidInput)
	}
	if err := checkKey("category id", cat.ID); err != nil {
		return err
	}
	if err := checkSubcategoryIDs(cat.Subcategories); err != nil {
		return err
	}
	data, err := docstore.Encode(cat)
	if err != nil {
		return err
	}
	if err := s.store.Set(detached(ctx), categoriesCollection, cat.ID, data, docstore.Merge()); err != nil {
		return fmt.Errorf("save category %s: %w", cat.ID, err)
	}
	s.invalidateCategories(ctx)
	return nil
}

// DeleteCategory removes a category document. MCQs referencing it are left alone.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if err := s.store.Delete(detached(ctx), categoriesCollection, id); err != nil {
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	s.invalidateCategories(ctx)
	return nil
}

var slugSeparators = regexp.MustCompile(`\s+`)

// SubcategorySlug derives a subcategory id from its display name.
func SubcategorySlug(name string) string {
	return slugSeparators.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// AddSubcategory appends a subcategory whose id is the slug of its name.
func (s *Service) AddSubcategory(ctx context.Context, categoryID, name, icon string) (domain.Subcategory, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Subcategory{}, fmt.Errorf("add subcategory: name required: %w", domain.ErrInvalidInput)
	}
	cat, err := s.GetCategory(ctx, categoryID)
	if err != nil {
		return domain.Subcategory{}, err
	}
	sub := domain.Subcategory{ID: SubcategorySlug(name), Name: strings.TrimSpace(name), Icon: icon}
	if _, exists := cat.Subcategory(sub.ID); exists {
		return domain.Subcategory{}, fmt.Errorf("add subcategory %s/%s: %w", categoryID, sub.ID, domain.ErrAlreadyExists)
	}
	cat.Subcategories = append(cat.Subcategories, sub)
	if err := s.writeSubcategories(ctx, categoryID, cat.Subcategories); err != nil {
		return domain.Subcategory{}, err
	}
	return sub, nil
}

// EditSubcategory renames a subcategory; an empty icon clears it.
func (s *Service) EditSubcategory(ctx context.Context, categoryID, subcategoryID, name, icon string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("edit subcategory: name required: %w", domain.ErrInvalidInput)
	}
	cat, err := s.GetCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	found := false
	for i := range cat.Subcategories {
		if cat.Subcategories[i].ID == subcategoryID {
			cat.Subcategories[i].Name = strings.TrimSpace(name)
			cat.Subcategories[i].Icon = icon
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("edit subcategory %s/%s: %w", categoryID, subcategoryID, domain.ErrNotFound)
	}
	return s.writeSubcategories(ctx, categoryID, cat.Subcategories)
}

// DeleteSubcategory removes a subcategory unless MCQs still reference it.
func (s *Service) DeleteSubcategory(ctx context.Context, categoryID, subcategoryID string) error {
	inUse, err := s.store.Query(ctx, mcqsCollection, docstore.Query{
		Where: []docstore.Filter{
			docstore.Where("categoryId", categoryID),
			docstore.Where("subcategoryId", subcategoryID),
		},
		Limit: 1,
	})
	if err != nil {
		return fmt.Errorf("delete subcategory: %w", err)
	}
	if len(inUse) > 0 {
		return fmt.Errorf("delete subcategory %s/%s: MCQs exist: %w", categoryID, subcategoryID, domain.ErrInUse)
	}

	cat, err := s.GetCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	kept := cat.Subcategories[:0]
	for _, sub := range cat.Subcategories {
		if sub.ID != subcategoryID {
			kept = append(kept, sub)
		}
	}
	return s.writeSubcategories(ctx, categoryID, kept)
}

func (s *Service) writeSubcategories(ctx context.Context, categoryID string, subs []domain.Subcategory) error {
	if subs == nil {
		subs = []domain.Subcategory{}
	}
	// Arrays are replaced wholesale by a merge, which is what a subcategory edit needs.
	err := s.store.Set(detached(ctx), categoriesCollection, categoryID, map[string]any{"subcategories": subs}, docstore.Merge())
	if err != nil {
		return fmt.Errorf("write subcategories of %s: %w", categoryID, err)
	}
	s.invalidateCategories(ctx)
	return nil
}

func (s *Service) invalidateCategories(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func checkSubcategoryIDs(subs []domain.Subcategory) error {
	seen := make(map[string]struct{}, len(subs))
	for _, sub := range subs {
		if sub.ID == "" {
			return fmt.Errorf("subcategory without id: %w", domain.ErrInvalidInput)
		}
		if _, dup := seen[sub.ID]; dup {
			return fmt.Errorf("duplicate subcategory id %q: %w", sub.ID, domain.ErrInvalidInput)
		}
		seen[sub.ID] = struct{}{}
	}
	return nil
}

func decodeAll[T any](docs []docstore.Document, setID func(*T, string)) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := doc.Decode(&v); err != nil {
			return nil, err
		}
		setID(&v, doc.ID)
		out = append(out, v)
	}
	return out, nil
}
