package shopify

// InventoryItemLocationsQuery lists the locations an inventory item is stocked at
const InventoryItemLocationsQuery = `
query inventoryItemLocations($id: ID!) {
  inventoryItem(id: $id) {
    id
    inventoryLevels(first: 50) {
      edges {
        node {
          location {
            id
          }
        }
      }
    }
  }
}
`
