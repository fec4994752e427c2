// Package gql exposes the recipe service as a GraphQL endpoint.
package gql

import (
	"context"

	"github.com/graphql-go/graphql"
	recipeapp "github.com/repoflow/backend/internal/application/recipe"
	"github.com/repoflow/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// RecipeService is the part of the application service the schema resolves against
type RecipeService interface {
	CreateRecipe(ctx context.Context, req recipeapp.CreateRecipeRequest) (*recipeapp.RecipeResponse, error)
	ListRecipes(ctx context.Context) ([]recipeapp.RecipeResponse, error)
	GetRecipe(ctx context.Context, id int64) (*recipeapp.RecipeResponse, error)
	DeleteRecipe(ctx context.Context, id int64) (bool, error)
	RecommendRecipe(ctx context.Context) (*recipeapp.RecipeResponse, error)
}

var recipeType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Recipe",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"title":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"description": &graphql.Field{Type: graphql.String},
		"createdAt":   &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
	},
})

type resolvers struct {
	service RecipeService
}

// NewSchema builds the recipe schema:
//
//	type Query { recipes: [Recipe!]!, recipe(id: Int!): Recipe, recommendRecipe: Recipe }
//	type Mutation {
//	  createRecipe(title: String!, description: String): Recipe!
//	  deleteRecipe(recipeId: Int!): Boolean!
//	}
func NewSchema(service RecipeService) (graphql.Schema, error) {
	r := &resolvers{service: service}

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"recipes": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(recipeType))),
				Resolve: r.recipes,
			},
			"recipe": &graphql.Field{
				Type: recipeType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: r.recipe,
			},
			"recommendRecipe": &graphql.Field{
				Type:    recipeType,
				Resolve: r.recommendRecipe,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createRecipe": &graphql.Field{
				Type: graphql.NewNonNull(recipeType),
				Args: graphql.FieldConfigArgument{
					"title":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"description": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: r.createRecipe,
			},
			"deleteRecipe": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
				Args: graphql.FieldConfigArgument{
					"recipeId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: r.deleteRecipe,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}

func (r *resolvers) recipes(p graphql.ResolveParams) (interface{}, error) {
	recipes, err := r.service.ListRecipes(p.Context)
	if err != nil {
		return nil, resolveError(p, err)
	}
	return recipes, nil
}

func (r *resolvers) recipe(p graphql.ResolveParams) (interface{}, error) {
	id, _ := p.Args["id"].(int)
	recipe, err := r.service.GetRecipe(p.Context, int64(id))
	if err != nil {
		return nil, resolveError(p, err)
	}
	return recipe, nil
}

func (r *resolvers) recommendRecipe(p graphql.ResolveParams) (interface{}, error) {
	recipe, err := r.service.RecommendRecipe(p.Context)
	if err != nil {
		return nil, resolveError(p, err)
	}
	return recipe, nil
}

func (r *resolvers) createRecipe(p graphql.ResolveParams) (interface{}, error) {
	req := recipeapp.CreateRecipeRequest{}
	req.Title, _ = p.Args["title"].(string)
	if desc, ok := p.Args["description"].(string); ok {
		req.Description = &desc
	}

	recipe, err := r.service.CreateRecipe(p.Context, req)
	if err != nil {
		return nil, resolveError(p, err)
	}
	return recipe, nil
}

func (r *resolvers) deleteRecipe(p graphql.ResolveParams) (interface{}, error) {
	id, _ := p.Args["recipeId"].(int)
	deleted, err := r.service.DeleteRecipe(p.Context, int64(id))
	if err != nil {
		return nil, resolveError(p, err)
	}
	return deleted, nil
}

// resolveError converts err for the client, logging anything unexpected
func resolveError(p graphql.ResolveParams, err error) error {
	gqlErr, expected := toGraphQLError(err)
	if !expected {
		logger.L(p.Context).Error("graphql resolver failed",
			zap.String("field", p.Info.FieldName),
			zap.Error(err),
		)
	}
	return gqlErr
}
