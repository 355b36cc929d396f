package workflow

// Examples are ready-made natural-language workflow requests, surfaced to
// clients as starting points for the define operation.
var Examples = []string{
	"Place the sport item in an action shot with a cheering crowd.",
	"Show the sport item on a field, then in a stadium, then in a store.",
	"Create a flat-lay composition with the product and related accessories.",
	"Place the person in the picture on a beach, then underwater, then on a boat.",
	"Generate a before-and-after comparison of the person using the fitness product.",
	"Generate a lifestyle image: show a person using the product in a natural setting.",
	"Generate different angles of the product at each step: front, back, and side views.",
	"Create a social media ad: place the item in a stunning landscape, add a catchy slogan",
	"Isolate a collection of products, arrange them for a website banner, and add a title.",
	"Isolate the product, then create a diagram showing an exploded view of its components.",
}
